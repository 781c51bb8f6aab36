package handler

import "lucy/internal/memory/models"

type recordResponse struct {
	models.Record
	// Durable is false while the write waits for replay.
	Durable bool `json:"durable"`
}

type recordsResponse struct {
	Memories []models.Record `json:"memories"`
	Count    int             `json:"count"`
}
