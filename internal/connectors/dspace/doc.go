// Package dspace implements the source catalog against a DSpace 7
// repository's discover REST API. Exams are listed newest first in
// fixed-size pages, with their ORIGINAL bundle bitstreams embedded so
// the download URL is known without extra requests.
package dspace
