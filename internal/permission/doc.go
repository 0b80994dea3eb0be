// Package permission provides the gate a scan must pass before the radio is
// touched.
//
// A Gate resolves a one-shot Decision asynchronously. Gates compose:
//
//	gate := permission.Remembered(
//	    permission.All(adapter, permission.Func(ui.PermissionPrompt(os.Stdin, os.Stdout))),
//	    registry,
//	)
//
// Request failures (the host could not be asked) are reported with an error
// matching ErrRequestFailed, either synchronously from Request or in
// Decision.Err. A denial is a Decision with Granted false and no error.
package permission
