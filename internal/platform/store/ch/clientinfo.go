package ch

import (
	"cmp"
	"os"
	"runtime"
	"strings"

	"litscreen/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo names this process in system.query_log as
// name/role followed by the go, commit and host products
func BuildClientInfo(role, name string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	field := func(s, def string) string { return cmp.Or(strings.TrimSpace(s), def) }

	product := func(n, v string) struct{ Name, Version string } {
		return struct{ Name, Version string }{n, v}
	}
	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		product(field(name, "litscreen"), field(role, "unknown")),
		product("go", runtime.Version()),
		product("commit", version.Info().ShortCommit()),
		product("host", field(host, "unknown")),
	}}
}
