package format

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

// DataReader aggregates store data.
type DataReader interface {
	GetData(ctx context.Context, q store.Query) map[string]domain.Snapshot
}

// VarsName is the registered name of the placeholder formatter.
const VarsName = "vars"

// Vars replaces {namespace.path} placeholders with store values.
// Placeholders that resolve to nothing are left as written; "{{" produces a literal "{".
type Vars struct {
	reader DataReader
}

func NewVars(reader DataReader) *Vars {
	return &Vars{reader: reader}
}

func (v *Vars) Name() string { return VarsName }

func (v *Vars) Format(ctx context.Context, template, channel string) string {
	if !strings.Contains(template, "{") {
		return template
	}

	doc, err := snapshotJSON(ctx, v.reader, channel)
	if err != nil {
		slog.WarnContext(ctx, "Formatter could not encode store data", "formatter", VarsName, "error", err)
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '{' {
			b.WriteByte('{')
			i += 2
			continue
		}

		end := strings.IndexByte(template[i+1:], '}')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}
		end += i + 1

		placeholder := template[i : end+1]
		if value, ok := resolve(doc, template[i+1:end]); ok {
			b.WriteString(value)
		} else {
			b.WriteString(placeholder)
		}
		i = end + 1
	}

	return b.String()
}

func resolve(doc []byte, path string) (string, bool) {
	if path == "" || strings.ContainsAny(path, "{ \t\n") {
		return "", false
	}
	result := gjson.GetBytes(doc, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

func snapshotJSON(ctx context.Context, reader DataReader, channel string) ([]byte, error) {
	return json.Marshal(reader.GetData(ctx, store.Query{Context: channel}))
}
