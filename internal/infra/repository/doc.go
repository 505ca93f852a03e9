// Package repository 提供基于文档存储的仓储实现。
// 实体以 JSON 文档落库，集合名与实体一一对应；环境文档经由
// normalize 兼容历史字段别名。
package repository

import (
	"encoding/json"
	"fmt"
)

const (
	collectionOrganizations = "organizations"
	collectionUsers         = "users"
	collectionStores        = "stores"
	collectionScenarios     = "scenarios"
	collectionSuites        = "suites"
	collectionEnvironments  = "environments"
	collectionBugs          = "environment_bugs"
	collectionActivityLogs  = "activity_logs"
)

func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return doc, nil
}

func fromDoc[T any](data map[string]any) (*T, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &v, nil
}
