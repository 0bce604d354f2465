package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/match-verify/internal/engine"
	"github.com/park285/match-verify/internal/ocrclient"
	"github.com/park285/match-verify/internal/profile"
	"github.com/park285/match-verify/internal/service/verify"
	"github.com/park285/match-verify/pkg/verifydto"
)

type serviceFlags struct {
	ocrURL     string
	profileDir string
	timeout    time.Duration
}

func (f *serviceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ocrURL, "ocr-url", os.Getenv("OCR_BASE_URL"), "OCR sidecar base URL")
	cmd.Flags().StringVar(&f.profileDir, "profile-dir", os.Getenv("PROFILE_DIR"), "directory of layout overrides")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "overall timeout")
}

// newService builds a store-less service; nothing is persisted or published.
func (f *serviceFlags) newService() (*verify.Service, error) {
	reg, err := profile.NewRegistry(f.profileDir, nil)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return verify.NewService(verify.Deps{
		Profiles:  reg,
		Engine:    engine.New(nil, nil, nil),
		Extractor: ocrclient.New(f.ocrURL, f.timeout),
	}, verify.Config{})
}

func parseGame(raw string) (profile.Game, error) {
	g, ok := profile.ParseGame(raw)
	if !ok {
		return "", fmt.Errorf("%w: %s", profile.ErrUnknownGame, raw)
	}
	return g, nil
}

func createVerifyCmd() *cobra.Command {
	var (
		sf       serviceFlags
		game     string
		teamSize int
		form     verifydto.VerifyForm
	)
	cmd := &cobra.Command{
		Use:   "verify [image]",
		Short: "Extract a Result from one screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parseGame(game)
			if err != nil {
				return err
			}
			img, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc, err := sf.newService()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), sf.timeout)
			defer cancel()
			res, err := svc.Verify(ctx, verify.VerifyInput{Game: g, TeamSize: teamSize, Form: form, Image: img})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	sf.bind(cmd)
	cmd.Flags().StringVar(&game, "game", "", "game key (efootball, fcm, dls, freefire)")
	cmd.Flags().IntVar(&teamSize, "team-size", 0, "players per side; 0 uses the game default")
	cmd.Flags().StringVar(&form.MatchID, "match-id", "", "match identifier")
	cmd.Flags().StringVar(&form.UserID, "user-id", "", "uploading user")
	cmd.Flags().StringVar(&form.UploaderGameUser, "uploader", "", "uploader in-game name")
	cmd.Flags().StringVar(&form.OpponentGameUser, "opponent", "", "opponent in-game name")
	cmd.Flags().StringVar(&form.LayoutVersion, "layout", "", "layout version")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func createCompareCmd() *cobra.Command {
	var (
		sf         serviceFlags
		game       string
		teamSize   int
		timestamps []string
	)
	cmd := &cobra.Command{
		Use:   "compare [resultA.json] [resultB.json]",
		Short: "Arbitrate two Result documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parseGame(game)
			if err != nil {
				return err
			}
			req := &verifydto.CompareRequest{ServerTimestamps: timestamps}
			for _, path := range args {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				var sp verifydto.SubmissionPayload
				if err := json.Unmarshal(b, &sp); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				req.Submissions = append(req.Submissions, sp)
			}
			svc, err := sf.newService()
			if err != nil {
				return err
			}
			v, err := svc.Compare(cmd.Context(), g, teamSize, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		},
	}
	sf.bind(cmd)
	cmd.Flags().StringVar(&game, "game", "", "game key")
	cmd.Flags().IntVar(&teamSize, "team-size", 0, "players per side; 0 uses the game default")
	cmd.Flags().StringSliceVar(&timestamps, "server-ts", nil, "server receive times for A and B (RFC 3339)")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func createProfilesCmd() *cobra.Command {
	var profileDir string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List registered game profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := profile.NewRegistry(profileDir, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, verify.ListProfiles(reg))
		},
	}
	cmd.Flags().StringVar(&profileDir, "profile-dir", os.Getenv("PROFILE_DIR"), "directory of layout overrides")
	return cmd
}
