// Package ble adapts a Bluetooth LE controller (github.com/paypal/gatt) to
// the scan pipeline.
//
// One Adapter serves as both collaborators of a pipeline:
//
//	adapter, err := ble.Open()
//	if err != nil {
//	    return err
//	}
//	p := pipeline.New(adapter, adapter)
//
// As a permission gate it waits for the controller to report a state:
// unauthorized denies, unsupported fails the request, and powered on or off
// grants. As a discovery stream it scans for advertisements while powered
// on; losing power mid-scan ends the activation with "radio off".
//
// Opening a controller usually requires elevated privileges (CAP_NET_ADMIN
// on Linux).
package ble
