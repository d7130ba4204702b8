package utils

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"
)

// Extractor 基于JMESPath的字段提取器
// 外部系统返回的对象结构并不统一（例如引用有时是对象有时是字符串），
// 用 "a || b" 这类表达式统一取值。编译后的表达式会被缓存。
type Extractor struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

// NewExtractor 创建字段提取器
func NewExtractor() *Extractor {
	return &Extractor{
		cache: make(map[string]*jmespath.JMESPath),
	}
}

// Search 对数据执行表达式
func (e *Extractor) Search(expression string, data interface{}) (interface{}, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("无效的表达式 %q: %w", expression, err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("表达式求值失败 %q: %w", expression, err)
	}

	return result, nil
}

// String 取字符串值，数字会被转换成字符串形式，对象和数组返回空字符串
func (e *Extractor) String(expression string, data interface{}) string {
	result, err := e.Search(expression, data)
	if err != nil {
		return ""
	}
	return scalarString(result)
}

// Float 取数值，字符串会尝试按数字解析，失败返回0
func (e *Extractor) Float(expression string, data interface{}) float64 {
	result, err := e.Search(expression, data)
	if err != nil {
		return 0
	}

	switch v := result.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

// Slice 取数组，非数组返回nil
func (e *Extractor) Slice(expression string, data interface{}) []interface{} {
	result, err := e.Search(expression, data)
	if err != nil {
		return nil
	}
	items, _ := result.([]interface{})
	return items
}

// getOrCompile 从缓存中取出编译好的表达式，不存在则编译
func (e *Extractor) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()

	return compiled, nil
}

// scalarString 把标量转换为字符串
func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// LastPathSegment 取引用地址的最后一段作为ID
// 例如 ".../account/3T2QMBKDMVRWB7PX39TQG6X7N" 返回 "3T2QMBKDMVRWB7PX39TQG6X7N"
func LastPathSegment(href string) string {
	href = strings.TrimRight(strings.TrimSpace(href), "/")
	if href == "" {
		return ""
	}
	idx := strings.LastIndex(href, "/")
	return href[idx+1:]
}
