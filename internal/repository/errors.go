package repository

import "errors"

var (
	// ErrConflict 조건부 업데이트 실패 (읽은 이후 다른 쪽에서 먼저 변경함)
	ErrConflict = errors.New("concurrent modification")

	ErrNotFound = errors.New("record not found")
)
