package cull

import "errors"

var (
	errZeroKeepDays = errors.New("cull: keep_days must be non-zero")

	// errAllCtfilesOld is ct_cull_collect_ctfiles' CFATALX safety abort:
	// refuse to tell the server every chunk is unreferenced.
	errAllCtfilesOld = errors.New("cull: All ctfiles are old and would be deleted")
)
