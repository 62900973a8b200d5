package models

import "time"

type Action string

const (
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
)

// UserAction: нажатие кнопки «вошёл/вышел» под сигналом.
type UserAction struct {
	Symbol string
	Action Action
	At     time.Time
}
