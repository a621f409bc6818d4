// Package validation checks input files before they reach the cleaner:
// extension and sniffed content type for uploads, and file and directory
// checks for the command-line tool.
package validation
