package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

var createTablePattern = regexp.MustCompile(`create_([a-z0-9_]+?)_table`)

// DependencyResolver はマイグレーション間の依存関係を解決し、適用順序を決定する。
//
// 依存関係は3つの情報源から収集する:
//  1. Dependencies() による明示的な宣言
//  2. ドライラン実行で捕捉した作成テーブルと外部キー参照テーブル
//  3. ファイル名の規約（create_xxx_table）からの推定（ドライラン失敗時のフォールバック）
type DependencyResolver struct{}

// NewDependencyResolver は新しいDependencyResolverを生成する。
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// Resolve は依存関係を満たす適用順序でマイグレーションを並び替える。
// 同順位のマイグレーションは名前順（タイムスタンプ順）を保つ。
// 循環依存がある場合はErrDependencyCycleを返す。
func (r *DependencyResolver) Resolve(ctx context.Context, migrations []migration.Migration, dialect string) ([]migration.Migration, error) {
	graph, err := r.Graph(ctx, migrations, dialect)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]migration.Migration, len(migrations))
	for _, m := range migrations {
		byName[m.Name()] = m
	}

	order, err := topoSort(graph)
	if err != nil {
		return nil, err
	}

	ordered := make([]migration.Migration, 0, len(order))
	for _, name := range order {
		ordered = append(ordered, byName[name])
	}
	return ordered, nil
}

// Graph はマイグレーション名→依存するマイグレーション名群の有向グラフを返す。
// 対象集合の外を指す依存（適用済みテーブルへの参照など）は辺に含めない。
func (r *DependencyResolver) Graph(ctx context.Context, migrations []migration.Migration, dialect string) (map[string][]string, error) {
	inSet := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		inSet[m.Name()] = true
	}

	// テーブル名 → そのテーブルを作成するマイグレーション名
	creators := make(map[string]string)
	created := make(map[string][]string, len(migrations))
	referenced := make(map[string][]string, len(migrations))

	for _, m := range migrations {
		tables, refs := r.analyze(ctx, m, dialect)
		created[m.Name()] = tables
		referenced[m.Name()] = refs
		for _, t := range tables {
			creators[t] = m.Name()
		}
	}

	graph := make(map[string][]string, len(migrations))
	for _, m := range migrations {
		deps := make(map[string]bool)

		if p, ok := m.(migration.DependencyProvider); ok {
			for _, dep := range p.Dependencies() {
				if inSet[dep] && dep != m.Name() {
					deps[dep] = true
				}
			}
		}

		for _, table := range referenced[m.Name()] {
			if creator, ok := creators[table]; ok && creator != m.Name() {
				deps[creator] = true
			}
		}

		list := make([]string, 0, len(deps))
		for dep := range deps {
			list = append(list, dep)
		}
		sort.Strings(list)
		graph[m.Name()] = list
	}
	return graph, nil
}

// analyze はドライラン実行で作成・参照テーブルを捕捉する。
// ドライランが失敗するマイグレーション（Raw主体など）は名前規約から推定する。
func (r *DependencyResolver) analyze(ctx context.Context, m migration.Migration, dialect string) (createdTables, referencedTables []string) {
	builder, err := schema.NewDryRunBuilder(dialect)
	if err == nil {
		if upErr := m.Up(ctx, builder); upErr == nil {
			return builder.CreatedTables(), builder.ReferencedTables()
		}
	}
	if match := createTablePattern.FindStringSubmatch(m.Name()); match != nil {
		return []string{match[1]}, nil
	}
	return nil, nil
}

// topoSort はKahnのアルゴリズムでトポロジカル順序を計算する。
// 各ステップで適用可能な候補のうち名前順で最小のものを選ぶため、順序は決定的。
func topoSort(graph map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(graph))
	dependents := make(map[string][]string, len(graph))
	for name := range graph {
		inDegree[name] = 0
	}
	for name, deps := range graph {
		for _, dep := range deps {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(graph))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}

	if len(order) != len(graph) {
		var remaining []string
		for name, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("%w: %s", domain.ErrDependencyCycle, strings.Join(remaining, ", "))
	}
	return order, nil
}

func insertSorted(list []string, value string) []string {
	i := sort.SearchStrings(list, value)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = value
	return list
}
