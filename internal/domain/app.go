package domain

import "time"

// App is one credential set bound to one user and platform
type App struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Platform    Platform           `json:"platform"`
	Name        string             `json:"name"`
	IsActive    bool               `json:"isActive"`
	Credentials PlatformCredential `json:"-"`
	WebhookIDs  []string           `json:"webhookIds"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Pairing is a Connect resolved together with both of its Apps
type Pairing struct {
	Connect *Connect
	Source  *App
	Target  *App
}
