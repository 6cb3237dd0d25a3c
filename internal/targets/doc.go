// Package targets reads the monitored targets from a directory of plain
// text files, one target per line.
//
// Hidden files, subdirectories, blank lines and lines starting with '#'
// are ignored. Each remaining line is validated for the monitor kind: an
// http(s) URL for the bytes kind or a registrable domain name for the set
// kind. Invalid lines are reported individually as Rejected entries and
// never stop the other targets from loading.
package targets
