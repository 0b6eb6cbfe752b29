// Package filecollection implements the destination service client:
// category slug lookup by course code, category listing, item
// download, and multipart upload, all behind a bearer token.
package filecollection
