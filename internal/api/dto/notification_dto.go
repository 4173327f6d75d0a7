package dto

import "github.com/cuongbtq/fieldops-be/internal/domain"

type ListNotificationsRequest struct {
	Unread bool `form:"unread"`
}

type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Count         int                   `json:"count"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
