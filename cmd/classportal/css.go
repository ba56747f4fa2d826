// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cssCmd = &cobra.Command{
	Use:   "css",
	Short: "Manage the global stylesheet",
}

var cssPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the stylesheet draft and write its asset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		_, v, err := a.stylesheet.Publish(cmd.Context(), nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n", v.ID)

		url, active, err := a.stylesheet.PublishedURL(cmd.Context())
		if err != nil {
			return err
		}
		if active {
			fmt.Fprintf(cmd.OutOrStdout(), "url:     %s\n", url)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "url:     (inactive)")
		}
		return nil
	},
}

func init() {
	cssCmd.AddCommand(cssPublishCmd)
	rootCmd.AddCommand(cssCmd)
}
