package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/nslisting/internal/config"
	"github.com/danmuck/nslisting/internal/logging"
	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/frame"
	"github.com/danmuck/nslisting/internal/protocol/protocols"
	"github.com/danmuck/nslisting/internal/record"
	"github.com/danmuck/nslisting/internal/thriftgen"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: %v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath string
	server     string
	protocol   string
	token      string
	caFile     string

	profile profile
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "nsctl",
		Short:         "nsctl - encode, decode and manage namespace listings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			return opts.resolve()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "nsctl TOML profile")
	root.PersistentFlags().StringVar(&opts.server, "server", "", "nsd base URL (overrides profile)")
	root.PersistentFlags().StringVarP(&opts.protocol, "protocol", "p", "", "wire protocol: "+strings.Join(protocols.Names(), ", "))
	root.PersistentFlags().StringVar(&opts.token, "token", "", "write token sent as a bearer credential")
	root.PersistentFlags().StringVar(&opts.caFile, "ca-file", "", "PEM bundle trusted for https servers")

	root.AddCommand(
		newEncodeCmd(opts),
		newDecodeCmd(opts),
		newListCmd(opts),
		newPutCmd(opts),
		newRemoveCmd(opts),
		newMkdirCmd(opts),
		newConfigCmd(),
	)
	return root
}

func (o *cliOptions) resolve() error {
	p := defaultProfile()
	if o.configPath != "" {
		loaded, err := loadProfile(o.configPath)
		if err != nil {
			return err
		}
		p = loaded
	}
	if o.server != "" {
		p.Server = strings.TrimRight(o.server, "/")
	}
	if o.protocol != "" {
		p.Protocol = o.protocol
	}
	if o.token != "" {
		p.Token = o.token
	}
	if o.caFile != "" {
		p.CAFile = o.caFile
	}
	if _, err := protocols.Lookup(p.Protocol); err != nil {
		return err
	}
	o.profile = p
	log.Debug().Str("server", p.Server).Str("protocol", p.Protocol).Msg("nsctl profile")
	return nil
}

func (o *cliOptions) client() (*client, error) {
	codec, err := protocols.Lookup(o.profile.Protocol)
	if err != nil {
		return nil, err
	}
	hc, err := newHTTPClient(o.profile)
	if err != nil {
		return nil, err
	}
	return &client{
		base:  o.profile.Server,
		token: o.profile.Token,
		codec: codec,
		http:  hc,
	}, nil
}

func newEncodeCmd(opts *cliOptions) *cobra.Command {
	var (
		name        string
		isNamespace bool
		asHex       bool
		framed      bool
		frameID     uint64
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "encode one listing to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := protocols.Lookup(opts.profile.Protocol)
			if err != nil {
				return err
			}
			b := thriftgen.NewNamespaceListingBuilder()
			if cmd.Flags().Changed("name") {
				b.Name(name)
			}
			l, err := b.IsNamespace(isNamespace).Build()
			if err != nil {
				return err
			}
			var data []byte
			if framed {
				data, err = encodeFramed(frameID, l, codec)
			} else {
				data, err = record.Marshal(l, codec)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asHex {
				_, err = fmt.Fprintln(out, hex.EncodeToString(data))
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "listing name")
	cmd.Flags().BoolVar(&isNamespace, "namespace", false, "mark the listing as a namespace")
	cmd.Flags().BoolVar(&asHex, "hex", false, "print hex instead of raw bytes")
	cmd.Flags().BoolVar(&framed, "frame", false, "wrap the record in an NSL1 frame")
	cmd.Flags().Uint64Var(&frameID, "id", 0, "frame message id (with --frame)")
	return cmd
}

func newDecodeCmd(opts *cliOptions) *cobra.Command {
	var (
		fromHex bool
		asJSON  bool
		framed  bool
	)
	cmd := &cobra.Command{
		Use:   "decode [FILE]",
		Short: "decode one listing, or a stream of frames, from FILE or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := protocols.Lookup(opts.profile.Protocol)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if fromHex {
				data, err = hex.DecodeString(strings.TrimSpace(string(data)))
				if err != nil {
					return fmt.Errorf("decode hex: %w", err)
				}
			}
			if framed {
				return decodeFramed(cmd.OutOrStdout(), data, asJSON)
			}
			var l thriftgen.NamespaceListing
			if err := record.Unmarshal(data, &l, codec); err != nil {
				return err
			}
			return printListing(cmd.OutOrStdout(), &l, asJSON)
		},
	}
	cmd.Flags().BoolVar(&fromHex, "hex", false, "input is hex text")
	cmd.Flags().BoolVar(&framed, "frame", false, "input is a sequence of NSL1 frames; each names its own protocol")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of the text form")
	return cmd
}

func encodeFramed(id uint64, l *thriftgen.NamespaceListing, codec protocol.Factory) ([]byte, error) {
	fr, err := frame.EncodeRecord(id, l, codec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := frame.WriteFrame(&buf, fr, frame.DefaultLimits()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFramed prints every frame in data, prefixed with its message id.
func decodeFramed(w io.Writer, data []byte, asJSON bool) error {
	in := bytes.NewReader(data)
	for n := 0; in.Len() > 0; n++ {
		fr, err := frame.ReadFrame(in, frame.DefaultLimits())
		if err != nil {
			return fmt.Errorf("frame %d: %w", n, err)
		}
		var l thriftgen.NamespaceListing
		if err := frame.DecodeRecord(fr, &l, protocol.DefaultLimits()); err != nil {
			return fmt.Errorf("frame %d (id %d): %w", n, fr.Header.MessageID, err)
		}
		if _, err := fmt.Fprintf(w, "%d ", fr.Header.MessageID); err != nil {
			return err
		}
		if err := printListing(w, &l, asJSON); err != nil {
			return err
		}
	}
	return nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
	}
	return os.ReadFile(args[0])
}

func printListing(w io.Writer, l *thriftgen.NamespaceListing, asJSON bool) error {
	if asJSON {
		b, err := json.Marshal(l)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	_, err := fmt.Fprintln(w, l.String())
	return err
}

func newListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls NAMESPACE",
		Short: "list the children of a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ls, err := c.list(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range ls {
				kind := "-"
				if l.GetIsNamespace() {
					kind = "d"
				}
				if _, err := fmt.Fprintf(out, "%s %s\n", kind, l.GetName()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newPutCmd(opts *cliOptions) *cobra.Command {
	var isNamespace bool
	cmd := &cobra.Command{
		Use:   "put NAMESPACE NAME",
		Short: "store a listing under a namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.put(cmd.Context(), args[0], thriftgen.NewNamespaceListing(args[1], isNamespace))
		},
	}
	cmd.Flags().BoolVar(&isNamespace, "namespace", false, "store the listing as a namespace")
	return cmd
}

func newRemoveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAMESPACE NAME",
		Short: "remove a listing; namespaces must be empty",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.remove(cmd.Context(), args[0], args[1])
		},
	}
}

func newMkdirCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir NAMESPACE",
		Short: "create a namespace and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return c.mkdir(cmd.Context(), args[0])
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config file helpers",
	}
	var (
		out       string
		overwrite bool
	)
	template := &cobra.Command{
		Use:   "template KIND",
		Short: "print or write a config template (nsd, nsctl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" {
				return config.WriteTemplate(out, args[0], overwrite)
			}
			text, err := config.Template(args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
	template.Flags().StringVarP(&out, "out", "o", "", "write to this path instead of stdout")
	template.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	cmd.AddCommand(template)
	return cmd
}
