package save

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestWaitStats(t *testing.T) {
	stats := NewWaitStats()
	for i := 1; i <= 20; i++ {
		stats.Observe("flash-program", i)
	}
	stats.Observe("dma", 1)
	stats.Observe("dma", 1)

	if actual, expected := stats.Ops(), []string{"dma", "flash-program"}; !reflect.DeepEqual(actual, expected) {
		t.Fatalf("actual = %v, expected = %v", actual, expected)
	}

	var buf bytes.Buffer
	if err := stats.Fprint(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "dma: 2 waits, 1-1 polls") {
		t.Errorf("missing dma summary:\n%s", out)
	}
	if !strings.Contains(out, "flash-program: 20 waits, 1-20 polls") {
		t.Errorf("missing flash-program summary:\n%s", out)
	}
}
