// Package gridexport turns a grid definition plus a row provider into a
// downloadable file. A format profile (label, icon, MIME type, extension,
// delimiter, writer id) selects the serializer; the renderer builds an
// in-memory tabular buffer (banners, header, data, footer) which a
// registered writer encodes as HTML, delimited text, Markdown, PDF, or an
// Excel workbook.
//
// The package is framework-free: HTTP handlers parse form values into a
// Request and hand everything else to Export.
package gridexport
