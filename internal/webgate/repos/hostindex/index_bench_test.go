package hostindex

import (
	"fmt"
	"testing"
)

func benchHosts(n int, suffix string) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("d%03d.%s", i, suffix)
	}
	return out
}

func BenchmarkIndex_Positive(b *testing.B) {
	hosts := benchHosts(1000, "bench.test")
	idx := New(hosts, DefaultFPRate)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Contains(hosts[i%len(hosts)])
	}
}

func BenchmarkIndex_Negative(b *testing.B) {
	idx := New(benchHosts(1000, "present.test"), DefaultFPRate)
	absent := benchHosts(1000, "absent.test")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Contains(absent[i%len(absent)])
	}
}
