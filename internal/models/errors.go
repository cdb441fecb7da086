package models

import "errors"

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrTaskNotFound  = errors.New("task not found")
)
