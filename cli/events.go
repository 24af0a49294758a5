package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// streamEvents drains events and writes each as a newline-delimited JSON
// object followed by a blank line. Events are separated by a blank line so
// a receiving parser can buffer across chunk boundaries and tolerate
// partial events.
func streamEvents(w io.Writer, events <-chan schema.Event) {
	for e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\n\n", raw)
	}
}
