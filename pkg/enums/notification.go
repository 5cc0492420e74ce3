package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeBOMGenerated        NotificationType = "bom_generated"
	NotificationTypeSuppliersFound      NotificationType = "suppliers_found"
	NotificationTypeMarketForecastReady NotificationType = "market_forecast_ready"
	NotificationTypeSystemAlert         NotificationType = "system_alert"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBOMGenerated,
	NotificationTypeSuppliersFound,
	NotificationTypeMarketForecastReady,
	NotificationTypeSystemAlert,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
