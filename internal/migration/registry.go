package migration

import (
	"fmt"
	"sort"
	"sync"

	"schema-migration-service/internal/domain"
)

// Registry は登録済みマイグレーションを名前で管理する。
type Registry struct {
	mu         sync.RWMutex
	migrations map[string]Migration
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{migrations: make(map[string]Migration)}
}

// Register はマイグレーションを登録する。同名の二重登録はエラー。
func (r *Registry) Register(m Migration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.migrations[m.Name()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateMigration, m.Name())
	}
	r.migrations[m.Name()] = m
	return nil
}

// Get は名前でマイグレーションを取得する。
func (r *Registry) Get(name string) (Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.migrations[name]
	return m, ok
}

// All は名前昇順（タイムスタンプ順）の全マイグレーションを返す。
func (r *Registry) All() []Migration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.migrations))
	for name := range r.migrations {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]Migration, len(names))
	for i, name := range names {
		result[i] = r.migrations[name]
	}
	return result
}

// Len は登録数を返す。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.migrations)
}

// Default はマイグレーションファイルがinit()から登録するパッケージ共有レジストリ。
var Default = NewRegistry()

// Register はデフォルトレジストリへ登録する。生成ファイルのinit()から呼ばれるため、
// 二重登録はプログラミングエラーとしてpanicする。
func Register(m Migration) {
	if err := Default.Register(m); err != nil {
		panic(err)
	}
}
