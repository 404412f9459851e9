// Package static serves files from a read-only fs.FS for the script and
// style directories. It never lists directories and never rewrites content.
package static
