package model

// Turn is one utterance in a kiosk conversation.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

func UserTurn(content string) Turn {
	return Turn{Role: TurnRoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: TurnRoleAssistant, Content: content}
}
