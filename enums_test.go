package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNotificationType(t *testing.T) {
	t.Run("Every stored name round trips", func(t *testing.T) {
		for _, typ := range notificationTypes {
			assert.Equal(t, typ, parseNotificationType(string(typ)))
		}
	})

	t.Run("Unknown input falls back to SYSTEM", func(t *testing.T) {
		assert.Equal(t, NotificationSystem, parseNotificationType("SOMETHING_NEW"))
		assert.Equal(t, NotificationSystem, parseNotificationType(""))
		// Parsing is case sensitive; lower case is not a stored name
		assert.Equal(t, NotificationSystem, parseNotificationType("match"))
	})
}

func TestParseNotificationActionType(t *testing.T) {
	t.Run("Known actions round trip", func(t *testing.T) {
		for _, a := range []NotificationActionType{ActionNone, ActionOpenChat, ActionOpenProfile, ActionOpenPayment, ActionOpenURL} {
			assert.Equal(t, a, parseNotificationActionType(string(a)))
		}
	})

	t.Run("Unknown input falls back to NONE", func(t *testing.T) {
		assert.Equal(t, ActionNone, parseNotificationActionType("OPEN_SETTINGS"))
		assert.Equal(t, ActionNone, parseNotificationActionType(""))
	})
}

func TestParseCallEnums(t *testing.T) {
	t.Run("Call type falls back to AUDIO", func(t *testing.T) {
		assert.Equal(t, CallVideo, parseCallType("VIDEO"))
		assert.Equal(t, CallAudio, parseCallType("AUDIO"))
		assert.Equal(t, CallAudio, parseCallType("HOLOGRAM"))
		assert.Equal(t, CallAudio, parseCallType(""))
	})

	t.Run("Call status falls back to FAILED", func(t *testing.T) {
		for _, s := range []CallStatus{CallRinging, CallConnecting, CallConnected, CallEnded, CallMissed, CallRejected, CallBusy, CallFailed} {
			assert.Equal(t, s, parseCallStatus(string(s)))
		}
		assert.Equal(t, CallFailed, parseCallStatus("ON_HOLD"))
		assert.Equal(t, CallFailed, parseCallStatus(""))
	})
}

func TestStringListJSON(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		list := []string{"hiking", "music"}
		assert.Equal(t, list, parseStringList(stringListToJSON(list)))
	})

	t.Run("Nil and empty serialize to empty array", func(t *testing.T) {
		assert.Equal(t, "[]", stringListToJSON(nil))
		assert.Equal(t, "[]", stringListToJSON([]string{}))
	})

	t.Run("Bad input parses to empty list, never nil", func(t *testing.T) {
		assert.Equal(t, []string{}, parseStringList(""))
		assert.Equal(t, []string{}, parseStringList("not json"))
		assert.Equal(t, []string{}, parseStringList("null"))
		assert.Equal(t, []string{}, parseStringList("[]"))
	})
}
