package digester

import "audiocodes-connector/internal/dto"

func (d *Digester) BuildEscalationMessage() dto.Activity {
	return messageActivity(d.lang.Translate("ask-to-escalate"))
}

func (d *Digester) BuildEscalatedMessage() dto.Activity {
	return messageActivity(d.lang.Translate("creating_chat"))
}

func (d *Digester) BuildInformationMessage() dto.Activity {
	return messageActivity(d.lang.Translate("ask-information"))
}

// BuildHangoutMessage asks AudioCodes to end the call.
func (d *Digester) BuildHangoutMessage() dto.Activity {
	return dto.Activity{Type: dto.ActivityTypeEvent, Name: dto.EventHangup}
}
