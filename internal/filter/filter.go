// Package filter implements include/exclude regexp filtering applied to
// storage rows before they enter a snapshot: pseudo-filesystems and
// noisy mount points carry no useful capacity information and would
// otherwise flood every cycle.
package filter

import (
	"regexp"

	"github.com/all-smi/all-smi/internal/log"
)

// Filter describes settings for filtering one dimension of a record.
type Filter struct {
	// Exclude pattern string.
	Exclude string `yaml:"exclude,omitempty"`
	// Compiled exclude pattern regexp.
	ExcludeRE *regexp.Regexp
	// Include pattern string.
	Include string `yaml:"include,omitempty"`
	// Compiled include pattern regexp.
	IncludeRE *regexp.Regexp
}

// New creates an empty filter set.
func New() map[string]Filter {
	return map[string]Filter{}
}

// DefaultFilters sets up default filters where no explicit ones exist.
func DefaultFilters(filters map[string]Filter) {
	log.Debug("define default filters")

	// Filesystem types with no capacity semantics.
	if _, ok := filters["storage/fstype"]; !ok {
		filters["storage/fstype"] = Filter{
			Exclude: `^(proc|sysfs|devtmpfs|tmpfs|devpts|cgroup2?|overlay|squashfs|autofs|mqueue|debugfs|tracefs|securityfs|pstore|bpf)$`,
		}
	}

	// Mount points that duplicate a parent filesystem's capacity.
	if _, ok := filters["storage/mountpoint"]; !ok {
		filters["storage/mountpoint"] = Filter{Exclude: `^/(boot/efi$|var/lib/docker/|snap/)`}
	}
}

// CompileFilters walks through filters and compiles their patterns.
func CompileFilters(filters map[string]Filter) error {
	log.Debug("compile filters")

	for key, f := range filters {
		if f.Exclude != "" {
			re, err := regexp.Compile(f.Exclude)
			if err != nil {
				return err
			}
			f.ExcludeRE = re
		}

		if f.Include != "" {
			re, err := regexp.Compile(f.Include)
			if err != nil {
				return err
			}
			f.IncludeRE = re
		}

		filters[key] = f
	}

	return nil
}

// Pass tests target against the filter: an exclude match rejects, and
// when an include pattern is set only matching targets pass. An empty
// filter passes everything.
func (f Filter) Pass(target string) bool {
	if f.ExcludeRE != nil && f.ExcludeRE.MatchString(target) {
		return false
	}
	if f.IncludeRE != nil {
		return f.IncludeRE.MatchString(target)
	}
	return true
}
