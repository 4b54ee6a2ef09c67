package depthmatch

import "fmt"

const (
	instructionIdle = "Welcome to the depth adjustment task.\n\nPress the confirm button to begin."

	instructionTrial = "Adjust the white curve to match the black curve.\n\nPress confirm when ready to submit."

	instructionEnd = "Experiment complete.\n\nThank you for your participation.\n\nData has been saved."

	instructionEndFailed = "Experiment complete.\n\nThank you for your participation.\n\nPlease notify the experimenter: data could not be saved."

	instructionAborted = "The session has been stopped."
)

func phaseInstruction(p Phase, practiceCount, mainCount int) string {
	switch p {
	case PhaseWelcome:
		return "You will see a rotating black curve (right eye only).\n\n" +
			"Adjust the white curve with the right joystick (Y axis)\n" +
			"to match the depth you perceive in the black curve.\n\n" +
			"Use the left joystick (X axis) to indicate your confidence.\n\n" +
			"Press confirm to continue."
	case PhasePracticeIntro:
		return fmt.Sprintf("Practice trials\n\nYou will now have %d practice trials.\n\n"+
			"Press confirm to submit each adjustment.\n\nPress confirm to start practice.", practiceCount)
	case PhaseMainIntro:
		return fmt.Sprintf("Main experiment\n\nThe practice is complete.\n\n"+
			"You will now complete %d trials.\n\nPress confirm to begin.", mainCount)
	case PhasePractice, PhaseMain:
		return instructionTrial
	case PhaseAborted:
		return instructionAborted
	default:
		return instructionIdle
	}
}

func breakInstruction(completed, total int) string {
	return fmt.Sprintf("Break\n\nCompleted %d of %d trials.\n\nTake a short break if needed.\n\nPress confirm to continue.", completed, total)
}
