package entity

import "time"

// Task: элемент очереди уведомлений в Redis
type Task struct {
	ID           string       `json:"id"`
	Notification Notification `json:"notification"`
	// Attempt: номер текущей попытки, начиная с 0
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
