package service

import (
	"errors"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
)

// User-facing messages.
const (
	msgCreateNotSignedIn = "עליך להיות מחובר כדי להעלות סיכומים"
	msgEditNotSignedIn   = "עליך להיות מחובר כדי לערוך סיכומים"
	msgDeleteNotSignedIn = "עליך להיות מחובר כדי למחוק סיכומים"
	msgNameRequired      = "נושא הסיכום הוא שדה חובה"
	msgCreateNeedsFiles  = "חובה להעלות לפחות קובץ אחד או להוסיף קישור"
	msgUpdateNeedsFiles  = "חובה להשאיר או להוסיף לפחות קובץ אחד או קישור"
	msgCreateUploadFail  = "כשלון בהעלאת קובץ: %s. אנא בדקו שהקובץ תקין ושהחיבור לאינטרנט יציב."
	msgUpdateUploadFail  = "כשלון בהעלאת קובץ: %s"
	msgCreateFailed      = "כשלון ביצירת רשומת סיכום"
	msgCreateFallback    = "כשלון בהעלאת סיכום"
	msgUpdateFailed      = "כשלון בעדכון הסיכום"
	msgDeleteFailed      = "כשלון במחיקת סיכום"
	msgNotFound          = "סיכום לא נמצא"
	msgEditForbidden     = "אין לך הרשאה לערוך סיכום זה"
	msgDeleteForbidden   = "אין לך הרשאה למחוק סיכום זה"
)

// UserError carries a message fit for the user plus the cause, if any.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

func userError(msg string, cause error) *UserError {
	return &UserError{Message: msg, Err: cause}
}

// failure turns err into a UserError. UserErrors pass through; route-layer
// rejections keep the server's message; anything else gets fallback.
func failure(err error, fallback string) error {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	var se *api.StatusError
	if errors.As(err, &se) && se.Status < 500 && se.Message != "" {
		return userError(se.Message, err)
	}
	return userError(fallback, err)
}
