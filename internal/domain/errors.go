package domain

import "errors"

var (
	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrRollbackFailed はロールバック実行時のエラー。
	ErrRollbackFailed = errors.New("rollback failed")

	// ErrMigrationNotRegistered はレジストリに存在しないマイグレーションを参照した場合のエラー。
	ErrMigrationNotRegistered = errors.New("migration not registered")

	// ErrDuplicateMigration は同名のマイグレーションを二重登録した場合のエラー。
	ErrDuplicateMigration = errors.New("duplicate migration name")

	// ErrDependencyCycle はマイグレーション依存グラフに循環がある場合のエラー。
	ErrDependencyCycle = errors.New("migration dependency cycle detected")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")

	// ErrNothingToSquash はスカッシュ対象のマイグレーションが無い場合のエラー。
	ErrNothingToSquash = errors.New("nothing to squash")

	// ErrUnsupportedDialect は未対応のデータベース方言を指定した場合のエラー。
	ErrUnsupportedDialect = errors.New("unsupported database dialect")

	// ErrValidationFailed は検証エラーが1件以上ある場合のエラー。
	ErrValidationFailed = errors.New("migration validation failed")
)
