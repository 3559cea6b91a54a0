package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/credit-crawler/internal/codec"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt [base64]",
	Short: "Decrypt a captured response payload",
	Long: `Decrypt a base64 payload using the configured AES key and IV and print
the plaintext JSON. Reads from stdin when no argument is given. Useful for
inspecting payloads captured from the upstream service.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var input string
		if len(args) == 1 {
			input = args[0]
		} else {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return eris.Wrap(err, "decrypt: read stdin")
			}
			input = string(raw)
		}

		cdc, err := codec.New(codec.Config{Key: cfg.Crypto.AESKey, IV: cfg.Crypto.AESIV})
		if err != nil {
			return eris.Wrap(err, "decrypt")
		}

		plain, err := cdc.Decrypt(strings.TrimSpace(input))
		if err != nil {
			return eris.Wrap(err, "decrypt")
		}

		fmt.Println(string(plain))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decryptCmd)
}
