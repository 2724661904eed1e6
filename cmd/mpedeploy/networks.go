package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mpetoken/mpedeploy/internal/config"
	"github.com/mpetoken/mpedeploy/internal/profile"
)

func newNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "Inspect network profiles",
		Long: `Inspect the configured target networks and their stakeholder roles.

Private keys are never printed in full.

Examples:
  mpedeploy networks list
  mpedeploy networks show ropsten --json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known networks",
		Args:  cobra.NoArgs,
		RunE:  runNetworksList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show a network's connection settings and roles",
		Args:  cobra.ExactArgs(1),
		RunE:  runNetworksShow,
	})
	return cmd
}

type networkSummary struct {
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint,omitempty"`
	NetworkID string `json:"network_id,omitempty"`
	Gas       uint64 `json:"gas,omitempty"`
	GasPrice  string `json:"gas_price,omitempty"`
	Profile   bool   `json:"profile"`
	Config    bool   `json:"config"`
}

func runNetworksList(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, name := range env.profiles.Names() {
		seen[name] = true
	}
	for _, name := range env.cfg.NetworkNames() {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]networkSummary, 0, len(names))
	for _, name := range names {
		s := networkSummary{Name: name}
		profileURL := ""
		if p, err := env.profiles.Resolve(name); err == nil {
			s.Profile = true
			profileURL = p.Endpoint()
		}
		if n, err := env.cfg.Network(name); err == nil {
			s.Config = true
			s.Endpoint = n.Endpoint(profileURL)
			s.NetworkID = n.NetworkID
			s.Gas = n.Gas
			s.GasPrice = n.GasPrice
		} else {
			s.Endpoint = profileURL
		}
		summaries = append(summaries, s)
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), summaries)
	}

	w := newTable(cmd.OutOrStdout())
	printTableHeader(w, "NAME", "ENDPOINT", "NETWORK ID", "GAS", "GAS PRICE", "STATUS")
	for _, s := range summaries {
		status := colorGreen("ready")
		switch {
		case !s.Profile:
			status = colorYellow("no profile")
		case !s.Config:
			status = colorYellow("no config")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, orDash(s.Endpoint), orDash(s.NetworkID), orDash(uintString(s.Gas)), orDash(s.GasPrice), status)
	}
	return w.Flush()
}

type roleView struct {
	Role    string `json:"role"`
	Address string `json:"address,omitempty"`
	Key     string `json:"key,omitempty"`
	Account *int   `json:"account,omitempty"`
	URL     string `json:"url,omitempty"`
}

type networkView struct {
	Name     string          `json:"name"`
	URL      string          `json:"url,omitempty"`
	Endpoint string          `json:"endpoint"`
	Signer   string          `json:"signer,omitempty"`
	Config   *config.Network `json:"config,omitempty"`
	Roles    []roleView      `json:"roles"`
}

func runNetworksShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	p, err := env.profiles.Resolve(args[0])
	if err != nil {
		return err
	}

	view := networkView{Name: p.Name, URL: p.URL, Endpoint: p.Endpoint()}
	if n, err := env.cfg.Network(p.Name); err == nil {
		view.Config = &n
		view.Endpoint = n.Endpoint(p.Endpoint())
	} else if !errors.Is(err, config.ErrUnknownNetwork) {
		return err
	}
	if signer, err := p.Signer(); err == nil {
		if addr, err := signer.Resolve(nil); err == nil {
			view.Signer = addr.Hex()
		}
	}

	names := make([]string, 0, len(p.Roles))
	for name := range p.Roles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := p.Roles[name]
		rv := roleView{Role: name, Key: profile.MaskKey(r.Key), Account: r.Account, URL: r.URL}
		switch {
		case r.Address != "":
			rv.Address = r.Address
		case r.Key != "":
			if addr, err := r.Resolve(nil); err == nil {
				rv.Address = addr.Hex()
			}
		}
		view.Roles = append(view.Roles, rv)
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Network:  %s\n", view.Name)
	fmt.Fprintf(out, "Endpoint: %s\n", view.Endpoint)
	if view.Signer != "" {
		fmt.Fprintf(out, "Signer:   %s\n", view.Signer)
	}
	if view.Config != nil {
		fmt.Fprintf(out, "Chain ID: %s\n", view.Config.NetworkID)
		fmt.Fprintf(out, "Gas:      %d @ %s\n", view.Config.Gas, view.Config.GasPrice)
	} else {
		fmt.Fprintf(out, "%s no network config entry\n", colorYellow("Warning:"))
	}
	fmt.Fprintln(out)

	w := newTable(out)
	printTableHeader(w, "ROLE", "ADDRESS", "KEY", "ACCOUNT", "URL")
	for _, r := range view.Roles {
		account := ""
		if r.Account != nil {
			account = strconv.Itoa(*r.Account)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Role, orDash(displayAddress(r.Address)), orDash(r.Key), orDash(account), orDash(r.URL))
	}
	return w.Flush()
}

func displayAddress(s string) string {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s).Hex()
	}
	return s
}

func uintString(v uint64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(v, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
