package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/blescan/internal/ui"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesRenameCmd)
	devicesCmd.AddCommand(devicesForgetCmd)

	rootCmd.AddCommand(permissionCmd)
	permissionCmd.AddCommand(permissionStatusCmd)
	permissionCmd.AddCommand(permissionForgetCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices seen by earlier scans",
	Long: `List every device remembered from earlier scans, most recently seen
first. Nicknames set with 'blescan devices rename' replace the advertised
name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		rows := [][]string{}
		for _, d := range reg.KnownDevices() {
			rssi := ""
			if d.LastRSSI != 0 {
				rssi = fmt.Sprintf("%d dBm", d.LastRSSI)
			}
			rows = append(rows, []string{
				d.Identity,
				d.DisplayName(),
				d.Source,
				formatSeen(d.LastSeen),
				rssi,
				strconv.Itoa(d.Sightings),
			})
		}

		ui.NewPrinter(os.Stdout).PrintTable(
			[]string{"Identity", "Name", "Source", "Last seen", "RSSI", "Scans"},
			rows,
			"No devices yet. Run 'blescan scan' to find some.",
		)
		return nil
	},
}

var devicesRenameCmd = &cobra.Command{
	Use:   "rename <identity> <nickname>",
	Short: "Give a device a nickname",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if reg.GetDevice(args[0]) == nil {
			return fmt.Errorf("unknown device %q", args[0])
		}
		reg.SetDeviceNickname(args[0], args[1])
		if err := reg.Save(); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Device renamed",
			ui.Param{Key: "Identity", Value: args[0]},
			ui.Param{Key: "Nickname", Value: args[1]},
		)
		return nil
	},
}

var devicesForgetCmd = &cobra.Command{
	Use:   "forget <identity>",
	Short: "Remove a device from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if !reg.ForgetDevice(args[0]) {
			return fmt.Errorf("unknown device %q", args[0])
		}
		if err := reg.Save(); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Device forgotten",
			ui.Param{Key: "Identity", Value: args[0]},
		)
		return nil
	},
}

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Show or reset the remembered scan permission",
}

var permissionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether scan permission has been granted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		printer := ui.NewPrinter(os.Stdout)
		if !reg.PermissionGranted() {
			printer.PrintWarning("Permission not granted",
				ui.Param{Key: "Next scan", Value: "asks before scanning"},
			)
			return nil
		}
		printer.PrintSuccess("Permission granted",
			ui.Param{Key: "Granted", Value: formatSeen(reg.Permission.GrantedAt)},
			ui.Param{Key: "Config", Value: reg.Path()},
		)
		return nil
	},
}

var permissionForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Forget the granted permission so the next scan asks again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if err := reg.ForgetPermission(); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Permission forgotten")
		return nil
	},
}

func formatSeen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

