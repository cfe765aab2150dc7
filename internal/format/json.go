package format

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONName is the registered name of the path extraction formatter.
const JSONName = "json"

// JSON treats the template as a gjson path and returns the matching raw JSON.
// An empty template returns the whole store; a path matching nothing returns "null".
type JSON struct {
	reader DataReader
}

func NewJSON(reader DataReader) *JSON {
	return &JSON{reader: reader}
}

func (j *JSON) Name() string { return JSONName }

func (j *JSON) Format(ctx context.Context, template, channel string) string {
	doc, err := snapshotJSON(ctx, j.reader, channel)
	if err != nil {
		slog.WarnContext(ctx, "Formatter could not encode store data", "formatter", JSONName, "error", err)
		return "null"
	}

	path := strings.TrimSpace(template)
	if path == "" {
		return string(doc)
	}

	result := gjson.GetBytes(doc, path)
	if !result.Exists() {
		return "null"
	}
	return result.Raw
}
