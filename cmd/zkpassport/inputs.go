package zkpassport

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/inputs"
	"github.com/mynextid/zk-passport/passport"
)

type inputsConfig struct {
	passportPath string
	cscaBundle   string
	mock         bool
	key          string
	hash         string
	circuit      string
	secret       string
	salt         string
	output       string
	witness      string
}

func NewInputsCmd() *cobra.Command {
	cfg := &inputsConfig{}

	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "Build register or DSC circuit inputs",
		Long:  `Parse a passport (or generate a signed mock) and build the inputs of the register or DSC circuit. The inputs are printed as JSON and can also be written as a binary gnark witness.`,
		Example: `  # Register inputs of a passport export
  zkpassport inputs --passport passport.json --secret 1234

  # DSC inputs of a mock RSA passport, with a witness file
  zkpassport inputs --mock --key rsa:2048 --circuit dsc --witness dsc.wtns`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInputs(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.passportPath, "passport", "f", "", "Passport JSON file")
	cmd.Flags().StringVar(&cfg.cscaBundle, "csca-bundle", "", "PEM bundle used when the passport carries no CSCA")
	cmd.Flags().BoolVar(&cfg.mock, "mock", false, "Generate a signed mock passport")
	cmd.Flags().StringVar(&cfg.key, "key", "rsa:2048", "Mock DSC key: rsa:<bits>, rsapss:<bits> or ecdsa:<curve>")
	cmd.Flags().StringVar(&cfg.hash, "hash", "sha256", "Mock data group and signature hash")
	cmd.Flags().StringVar(&cfg.circuit, "circuit", "register", "Circuit (register, dsc)")
	cmd.Flags().StringVar(&cfg.secret, "secret", "", "Commitment secret (random when empty)")
	cmd.Flags().StringVar(&cfg.salt, "salt", "", "Salt (random when empty)")
	cmd.Flags().StringVarP(&cfg.output, "output", "o", "", "Write the JSON inputs to a file instead of stdout")
	cmd.Flags().StringVarP(&cfg.witness, "witness", "w", "", "Write the binary gnark witness to a file")

	return cmd
}

// parseKeySpec reads family:size specs such as rsa:2048 or ecdsa:secp256r1
func parseKeySpec(s string) (certificate.KeySpec, error) {
	family, param, _ := strings.Cut(strings.ToLower(s), ":")
	var spec certificate.KeySpec
	switch family {
	case "rsa":
		spec.Family = certificate.RSA
	case "rsapss", "rsa-pss":
		spec.Family = certificate.RSAPSS
	case "ecdsa":
		spec.Family = certificate.ECDSA
		spec.Curve = param
		if spec.Curve == "" {
			spec.Curve = "secp256r1"
		}
		return spec, nil
	default:
		return spec, fmt.Errorf("unknown key family %q", family)
	}
	spec.Bits = 2048
	if param != "" {
		bits, err := strconv.Atoi(param)
		if err != nil {
			return spec, fmt.Errorf("invalid key size %q", param)
		}
		spec.Bits = bits
	}
	return spec, nil
}

func optionalField(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := field.ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, field.Check(v)
}

func loadPassport(cfg *inputsConfig) (*passport.Passport, error) {
	if cfg.mock {
		spec, err := parseKeySpec(cfg.key)
		if err != nil {
			return nil, err
		}
		h, ok := hashing.LookupFunction(cfg.hash)
		if !ok {
			return nil, fmt.Errorf("unknown hash %q", cfg.hash)
		}
		p, _, err := passport.GenerateMock(passport.MockOptions{Key: spec, DGHash: h})
		return p, err
	}

	if cfg.passportPath == "" {
		return nil, fmt.Errorf("--passport or --mock is required")
	}
	data, err := os.ReadFile(cfg.passportPath)
	if err != nil {
		return nil, err
	}
	var p passport.Passport
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("passport: %w", err)
	}
	if p.CSCA == nil && cfg.cscaBundle != "" {
		store := certificate.NewStore()
		if _, err := store.LoadFile(cfg.cscaBundle); err != nil {
			return nil, err
		}
		if err := p.ResolveCSCA(store); err != nil {
			return nil, err
		}
	}
	return &p, p.Parse()
}

func runInputs(cfg *inputsConfig) error {
	p, err := loadPassport(cfg)
	if err != nil {
		return err
	}
	secret, err := optionalField(cfg.secret)
	if err != nil {
		return fmt.Errorf("secret: %w", err)
	}
	salt, err := optionalField(cfg.salt)
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}

	var (
		name   string
		layout inputs.Layout
		c      inputs.CircuitInputs
	)
	switch cfg.circuit {
	case "register":
		reg, err := inputs.GenerateRegisterInputs(p, secret, salt)
		if err != nil {
			return err
		}
		name, layout = reg.Circuit, reg.Layout()
		c, err = reg.CircuitInputs()
		if err != nil {
			return err
		}
	case "dsc":
		dsc, err := inputs.GenerateDSCInputs(p, salt)
		if err != nil {
			return err
		}
		name, layout = dsc.Circuit, dsc.Layout()
		c, err = dsc.CircuitInputs()
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown circuit %q", cfg.circuit)
	}

	out, err := c.MarshalIndent()
	if err != nil {
		return err
	}
	if cfg.output != "" {
		if err := os.WriteFile(cfg.output, out, 0644); err != nil {
			return err
		}
		color.Green("[OK] %s inputs written to %s", name, cfg.output)
	} else {
		fmt.Println(string(out))
	}

	if cfg.witness != "" {
		w, err := c.Witness(layout)
		if err != nil {
			return err
		}
		data, err := w.MarshalBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.witness, data, 0644); err != nil {
			return err
		}
		nbPublic, nbSecret := layout.Count()
		color.Green("[OK] %s witness (%d values) written to %s", name, nbPublic+nbSecret, cfg.witness)
	}
	return nil
}
