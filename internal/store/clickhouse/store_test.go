package clickhouse

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "native with timeouts",
			cfg: Config{Host: "ch", Port: 9000, Database: "market", User: "u", Password: "p",
				DialTimeout: 5 * time.Second, ReadTimeout: 30 * time.Second},
			want: "clickhouse://u:p@ch:9000/market?dial_timeout=5s&read_timeout=30s",
		},
		{
			name: "http without options",
			cfg:  Config{Host: "ch", Port: 8123, Database: "default", User: "default", UseHTTP: true},
			want: "clickhouse+http://default:@ch:8123/default",
		},
		{
			name: "read timeout only",
			cfg:  Config{Host: "ch", Port: 9000, Database: "d", User: "u", ReadTimeout: time.Second},
			want: "clickhouse://u:@ch:9000/d?read_timeout=1s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildDSN(tt.cfg); got != tt.want {
				t.Errorf("buildDSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadQuery_Bounds(t *testing.T) {
	q, args := readQuery("candles", "BTC", "1h", 0, 0)
	if strings.Contains(q, "ts >=") || strings.Contains(q, "ts <=") || len(args) != 2 {
		t.Errorf("unbounded query = %q %v", q, args)
	}

	q, args = readQuery("candles", "BTC", "1h", 100, 200)
	if !strings.Contains(q, "ts >= ?") || !strings.Contains(q, "ts <= ?") {
		t.Errorf("bounded query = %q", q)
	}
	if len(args) != 4 || args[2] != int64(100) || args[3] != int64(200) {
		t.Errorf("args = %v", args)
	}
	if !strings.HasSuffix(q, "ORDER BY ts ASC") {
		t.Errorf("query not ordered: %q", q)
	}
}

func TestNew_RequiresHost(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without host")
	}
}
