package main

import "encoding/json"

// Closed enumerations persisted as their upper-case names. Each parse
// function has a documented fallback for unrecognized input instead of
// failing, so rows written by newer app versions still load.

// NotificationType tags a notification row.
type NotificationType string

const (
	NotificationMatch                NotificationType = "MATCH"
	NotificationMessage              NotificationType = "MESSAGE"
	NotificationCallMissed           NotificationType = "CALL_MISSED"
	NotificationVerificationApproved NotificationType = "VERIFICATION_APPROVED"
	NotificationSubscriptionExpiring NotificationType = "SUBSCRIPTION_EXPIRING"
	NotificationPaymentSuccess       NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed        NotificationType = "PAYMENT_FAILED"
	NotificationProfileView          NotificationType = "PROFILE_VIEW"
	NotificationAppUpdate            NotificationType = "APP_UPDATE"
	NotificationSystem               NotificationType = "SYSTEM"
)

// notificationTypes lists every valid NotificationType.
var notificationTypes = []NotificationType{
	NotificationMatch,
	NotificationMessage,
	NotificationCallMissed,
	NotificationVerificationApproved,
	NotificationSubscriptionExpiring,
	NotificationPaymentSuccess,
	NotificationPaymentFailed,
	NotificationProfileView,
	NotificationAppUpdate,
	NotificationSystem,
}

// parseNotificationType maps a stored string back to the enum.
// Fallback: SYSTEM.
func parseNotificationType(s string) NotificationType {
	for _, t := range notificationTypes {
		if s == string(t) {
			return t
		}
	}
	return NotificationSystem
}

// NotificationActionType describes what tapping a notification should do.
type NotificationActionType string

const (
	ActionNone        NotificationActionType = "NONE"
	ActionOpenChat    NotificationActionType = "OPEN_CHAT"
	ActionOpenProfile NotificationActionType = "OPEN_PROFILE"
	ActionOpenPayment NotificationActionType = "OPEN_PAYMENT"
	ActionOpenURL     NotificationActionType = "OPEN_URL"
)

// parseNotificationActionType maps a stored string back to the enum.
// Fallback: NONE.
func parseNotificationActionType(s string) NotificationActionType {
	switch NotificationActionType(s) {
	case ActionOpenChat, ActionOpenProfile, ActionOpenPayment, ActionOpenURL:
		return NotificationActionType(s)
	}
	return ActionNone
}

// CallType distinguishes audio from video calls.
type CallType string

const (
	CallAudio CallType = "AUDIO"
	CallVideo CallType = "VIDEO"
)

// parseCallType maps a stored string back to the enum. Fallback: AUDIO.
func parseCallType(s string) CallType {
	if CallType(s) == CallVideo {
		return CallVideo
	}
	return CallAudio
}

// CallStatus is the lifecycle state of a call row.
type CallStatus string

const (
	CallRinging    CallStatus = "RINGING"
	CallConnecting CallStatus = "CONNECTING"
	CallConnected  CallStatus = "CONNECTED"
	CallEnded      CallStatus = "ENDED"
	CallMissed     CallStatus = "MISSED"
	CallRejected   CallStatus = "REJECTED"
	CallBusy       CallStatus = "BUSY"
	CallFailed     CallStatus = "FAILED"
)

// parseCallStatus maps a stored string back to the enum. Fallback: FAILED.
func parseCallStatus(s string) CallStatus {
	switch CallStatus(s) {
	case CallRinging, CallConnecting, CallConnected, CallEnded, CallMissed, CallRejected, CallBusy:
		return CallStatus(s)
	}
	return CallFailed
}

// String-list columns (interests etc.) are stored as JSON arrays.

func stringListToJSON(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func parseStringList(jsonStr string) []string {
	var result []string
	if jsonStr == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return []string{}
	}
	if result == nil {
		return []string{}
	}
	return result
}
