package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-did-resolver/multikey"
	"github.com/pilacorp/go-did-resolver/proof"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve DID...",
	Short: "Resolve one or more DIDs and print the resolution results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newResolver()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			res, err := r.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}

		failed := 0
		out := make([]map[string]any, 0, len(args))
		for _, br := range r.ResolveAll(cmd.Context(), args) {
			entry := map[string]any{"input": br.Input}
			if br.Err != nil {
				failed++
				entry["error"] = br.Err.Error()
			} else {
				entry["result"] = br.Result
			}
			out = append(out, entry)
		}
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d DIDs failed to resolve", failed, len(args))
		}
		return nil
	},
}

var dereferenceCmd = &cobra.Command{
	Use:   "dereference DID-URL",
	Short: "Dereference a DID URL and print the selected resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newResolver()
		if err != nil {
			return err
		}
		res, err := r.Dereference(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		switch {
		case res.VerificationMethod != nil:
			return printJSON(cmd.OutOrStdout(), res.VerificationMethod)
		case res.Service != nil && res.URL == "":
			return printJSON(cmd.OutOrStdout(), res.Service)
		case res.URL != "":
			_, err := fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			return err
		case res.Content != nil:
			_, err := cmd.OutOrStdout().Write(res.Content)
			return err
		default:
			return printJSON(cmd.OutOrStdout(), res.Document)
		}
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify FILE",
	Short: "Verify the Data Integrity proofs attached to a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var payload proof.JSONMap
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		r, err := newResolver()
		if err != nil {
			return err
		}
		if err := r.VerifyProofs(cmd.Context(), payload); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "proofs verified")
		return err
	},
}

var thumbprintCmd = &cobra.Command{
	Use:   "thumbprint DID-URL",
	Short: "Print the RFC 7638 JWK thumbprint of a verification method, usable as a JOSE kid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newResolver()
		if err != nil {
			return err
		}
		res, err := r.Dereference(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.VerificationMethod == nil {
			return fmt.Errorf("%s does not name a verification method", args[0])
		}
		j, err := multikey.ToJWK(res.VerificationMethod.Key)
		if err != nil {
			return err
		}
		tp, err := j.Thumbprint()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tp)
		return err
	},
}
