package zkpassport

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mynextid/zk-passport/asn1/der"
	"github.com/mynextid/zk-passport/asn1/oids"
	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
)

type inspectConfig struct {
	issuer string
	dump   bool
}

func NewInspectCmd() *cobra.Command {
	cfg := &inspectConfig{}

	cmd := &cobra.Command{
		Use:   "inspect <certificate>...",
		Short: "Inspect DSC and CSCA certificates",
		Long:  `Parse certificates the way the circuits see them and report the algorithm, key and whether a register circuit exists for it.`,
		Example: `  # Summarize a document signer
  zkpassport inspect dsc.pem

  # Check the DSC against its CSCA and dump the ASN.1 structure
  zkpassport inspect dsc.pem --issuer csca.pem --asn1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cfg, args)
		},
	}

	cmd.Flags().StringVarP(&cfg.issuer, "issuer", "i", "", "Issuer certificate to verify the signature against")
	cmd.Flags().BoolVar(&cfg.dump, "asn1", false, "Dump the ASN.1 structure")

	return cmd
}

func readCertificate(path string) (*certificate.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return certificate.Parse(data)
}

func runInspect(cfg *inspectConfig, paths []string) error {
	var issuer *certificate.Certificate
	if cfg.issuer != "" {
		var err error
		if issuer, err = readCertificate(cfg.issuer); err != nil {
			return fmt.Errorf("issuer: %w", err)
		}
	}

	for _, path := range paths {
		cert, err := readCertificate(path)
		if err != nil {
			color.Red("[X] %s: %v", path, err)
			continue
		}

		color.Cyan("==== %s ====", path)
		fmt.Printf("  subject:    %s\n", cert.Subject)
		fmt.Printf("  issuer:     %s\n", cert.Issuer)
		fmt.Printf("  serial:     %s\n", cert.SerialNumber)
		fmt.Printf("  validity:   %s - %s\n", cert.NotBefore.Format("2006-01-02"), cert.NotAfter.Format("2006-01-02"))
		fmt.Printf("  signature:  %s\n", cert.SignatureAlgorithm)
		if cert.PSS != nil {
			fmt.Printf("  pss:        %s salt %d\n", cert.PSS.Hash, cert.PSS.SaltLength)
		}
		fmt.Printf("  key:        %s %d bits\n", cert.PublicKey.Family(), cert.PublicKey.Bits())
		if cert.SubjectKeyID != "" {
			fmt.Printf("  ski:        %s\n", cert.SubjectKeyID)
		}
		if cert.AuthorityKeyID != "" {
			fmt.Printf("  aki:        %s\n", cert.AuthorityKeyID)
		}
		if h, err := commitment.PubKeyHash(cert.PublicKey); err == nil {
			fmt.Printf("  key hash:   %s\n", h)
		}

		alg := cert.Algorithm()
		if certificate.Supported(alg) {
			fmt.Printf("  algorithm:  %s\n", color.GreenString(alg.String()))
		} else {
			fmt.Printf("  algorithm:  %s\n", color.YellowString("%s (no circuit)", alg))
		}

		if issuer != nil {
			if err := cert.CheckSignatureFrom(issuer); err != nil {
				color.Red("  [X] not signed by %s: %v", cfg.issuer, err)
			} else {
				color.Green("  [OK] signed by %s", cfg.issuer)
			}
		}

		if cfg.dump {
			fmt.Println()
			if err := der.Print(os.Stdout, cert.Raw, "  ", oids.DefaultRegistry); err != nil {
				return err
			}
		}
		fmt.Println()
	}
	return nil
}
