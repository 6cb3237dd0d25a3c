// Package collector captures the current state of a target.
//
// HTTPCollector fetches the raw bytes served at a URL, optionally through
// a SOCKS5 proxy. SetCollector enumerates the subdomains of a domain by
// querying several Sources concurrently: the certificate transparency log
// at crt.sh and any number of external enumeration tools run through the
// shell. A failing source is logged and skipped; the set collector fails
// only when every source failed. Results are unioned, normalized and
// restricted to names under the queried domain.
//
// Every collection failure is an *Error, which matches ErrCollect with
// errors.Is and carries the source and target that failed.
package collector
