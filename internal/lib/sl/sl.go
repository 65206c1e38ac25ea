// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error".
//
//	log.Error("failed to find user", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// UserID возвращает атрибут с идентификатором пользователя.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}
