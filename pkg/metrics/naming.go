package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sort"
	"strings"
)

// CounterName converts a dotted metric name to its Prometheus counter name
func CounterName(name string) string {
	n := sanitize(name)
	if strings.HasSuffix(n, "_total") {
		return n
	}
	return n + "_total"
}

// TimerName converts a dotted metric name to its Prometheus histogram name
func TimerName(name string) string {
	n := sanitize(name)
	if strings.HasSuffix(n, "_seconds") {
		return n
	}
	return n + "_seconds"
}

// sanitize replaces every character Prometheus does not accept with '_'.
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// tagLabels merges tag pairs over the common labels. Tags win on conflict.
func tagLabels(common prometheus.Labels, tags []string) (prometheus.Labels, error) {
	if len(tags)%2 != 0 {
		return nil, ErrOddTags
	}
	labels := make(prometheus.Labels, len(common)+len(tags)/2)
	for k, v := range common {
		labels[k] = v
	}
	for i := 0; i < len(tags); i += 2 {
		labels[sanitize(tags[i])] = tags[i+1]
	}
	return labels, nil
}

func labelNames(labels prometheus.Labels) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
