package db

import (
	"strconv"
	"strings"
)

// Rebind rewrites `?` placeholders to `$1..$n` for postgres and returns
// query unchanged for sqlite and mysql. Queries must not carry a literal `?`.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns n comma separated placeholders for an IN list.
func Placeholders(driver Driver, n int) string {
	if n <= 0 {
		return ""
	}
	return Rebind(driver, strings.TrimSuffix(strings.Repeat("?,", n), ","))
}
