package cmd

import (
	"fmt"

	"github.com/excflow/excflow/output"
)

// render writes data as JSON when --format=json, otherwise invokes
// textRender — every query command shares this fork.
func render(commandName string, data interface{}, textRender func() error) error {
	switch format {
	case "json":
		return output.NewJSONFormatter(Version).Format(commandName, data)
	case "text", "":
		return textRender()
	default:
		return fmt.Errorf("unsupported format %q (use text or json)", format)
	}
}
