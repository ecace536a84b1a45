package hardware

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// SerialDisplay writes the two status lines and log output to a serial
// device (the 16x2 character module sits behind a UART backpack). Frames
// are plain text: "\f" clears, then the two lines. Log lines are mirrored
// to the process logger so they also land on the journal.
type SerialDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSerialDisplay(w io.Writer) *SerialDisplay {
	return &SerialDisplay{w: w}
}

func (d *SerialDisplay) Show(line1, line2 string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := fmt.Fprintf(d.w, "\f%s\n%s\n", Clip(line1), Clip(line2)); err != nil {
		log.Printf("display write error: %v", err)
	}
}

func (d *SerialDisplay) Log(msg string) {
	d.mu.Lock()
	if _, err := fmt.Fprintf(d.w, "# %s\n", msg); err != nil {
		log.Printf("display log write error: %v", err)
	}
	d.mu.Unlock()
	log.Print(msg)
}

// Clip truncates s to the display width.
func Clip(s string) string {
	if len(s) > DisplayWidth {
		return s[:DisplayWidth]
	}
	return s
}
