package domain

import "time"

// SyncLog records the outcome of one record synchronization
type SyncLog struct {
	ID        string      `json:"id"`
	Status    bool        `json:"status"`
	ConnectID string      `json:"connectId"`
	UserID    string      `json:"userId"`
	Module    ModuleType  `json:"module"`
	Payload   interface{} `json:"payload,omitempty"`
	Message   string      `json:"message"`
	Label     string      `json:"label"`
	CreatedAt time.Time   `json:"createdAt"`
}
