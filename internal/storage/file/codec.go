package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"taskpad/internal/task"
)

// Format 表示任务文件的编码格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 校验格式名称。
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("不支持的文件格式: %s", name)
	}
}

func Encode(format Format, records []task.Record) ([]byte, error) {
	switch format {
	case FormatYAML:
		return encodeYAML(records)
	default:
		return encodeJSON(records)
	}
}

func Decode(format Format, data []byte) ([]task.Record, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

// recordKeys 返回记录的键：先按固定字段顺序，再按字典序追加其它键。
func recordKeys(rec task.Record) []string {
	keys := make([]string, 0, len(rec))
	known := make(map[string]struct{}, len(task.RecordFields))
	for _, field := range task.RecordFields {
		known[field] = struct{}{}
		if _, ok := rec[field]; ok {
			keys = append(keys, field)
		}
	}
	var extra []string
	for key := range rec {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

type orderedJSON []task.Record

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, rec.ID()); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.WriteByte('{')
		for j, key := range recordKeys(rec) {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(&buf, key); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeJSONString(&buf, rec[key]); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

func encodeJSON(records []task.Record) ([]byte, error) {
	b, err := json.MarshalIndent(orderedJSON(records), "", "    ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// decodeJSON 按文件中的键顺序解析 {id: {field: "value"}}。
func decodeJSON(data []byte) ([]task.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("invalid JSON: top level must be an object")
	}

	var records []task.Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, _ := keyTok.(string)
		var raw map[string]*string
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid record %q: %w", key, err)
		}
		if raw == nil {
			return nil, fmt.Errorf("invalid record %q: must be an object", key)
		}
		rec := make(task.Record, len(raw))
		for field, value := range raw {
			if value == nil {
				return nil, fmt.Errorf("invalid record %q: field %q is null", key, field)
			}
			rec[field] = *value
		}
		if err := checkKey(key, rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON: trailing content")
	}
	return records, nil
}

func encodeYAML(records []task.Record) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, rec := range records {
		value := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range recordKeys(rec) {
			value.Content = append(value.Content, strNode(key), strNode(rec[key]))
		}
		root.Content = append(root.Content, strNode(rec.ID()), value)
	}
	if len(root.Content) == 0 {
		root.Style = yaml.FlowStyle
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func strNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func decodeYAML(data []byte) ([]task.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("invalid YAML: expected a single document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("invalid YAML: top level must be a mapping")
	}

	records := make([]task.Record, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("invalid YAML: line %d: key must be a scalar", keyNode.Line)
		}
		if valueNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("invalid record %q: must be a mapping", keyNode.Value)
		}
		for _, field := range valueNode.Content {
			if field.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("invalid record %q: line %d: values must be scalars", keyNode.Value, field.Line)
			}
			if field.ShortTag() == "!!null" {
				return nil, fmt.Errorf("invalid record %q: line %d: null value", keyNode.Value, field.Line)
			}
		}
		var rec task.Record
		if err := valueNode.Decode(&rec); err != nil {
			return nil, fmt.Errorf("invalid record %q: %w", keyNode.Value, err)
		}
		if rec == nil {
			rec = task.Record{}
		}
		if err := checkKey(keyNode.Value, rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func checkKey(key string, rec task.Record) error {
	if id, ok := rec[task.FieldTaskID]; ok && id != key {
		return fmt.Errorf("record key %q does not match task_id %q", key, id)
	}
	return nil
}
