// Command agentwired is an ssh-agent that answers from a fixed set of
// signing identities: local ed25519 keys or a key held in a YubiHSM2.
package main

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pborman/getopt/v2"
	"github.com/rs/zerolog"
	cryptossh "golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/pactsec/agentwire/internal/config"
	"github.com/pactsec/agentwire/internal/opensshkey"
	"github.com/pactsec/agentwire/internal/signing"
	"github.com/pactsec/agentwire/pkg/agent"
	"github.com/pactsec/agentwire/pkg/sshkey"
	"github.com/pactsec/agentwire/pkg/transport"
)

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("app", "agentwired").Logger()
	status, err := mainWithStatus()
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
	os.Exit(status)
}

func mainWithStatus() (int, error) {
	const usage = `
Start an ssh-agent that answers from a fixed set of signing identities.

It can use either a private key file or a private key managed by a
yubihsm2 device. To use a private key file, pass the -k option with its
name. Unencrypted ed25519 keys in openssh format are read directly;
other key types and formats understood by golang.org/x/crypto/ssh are
also accepted, and if the key is encrypted the agent prompts for its
passphrase on the terminal.
To use a yubihsm key, you need to specify both an authorization file
(-a option) and key id (-i option). The contents of the authorization
file is a single line with the authorization id (decimal number), and
the corresponding passphrase, separated by a single ':' character.

When using a yubihsm key, the agent needs a separate yubihsm-connector
process running. By default, the connector is expected to listen on
TCP port 12345 on localhost, but this can be changed with the -c
option.

The agent listens for connections on a unix socket. By default, a
random name is selected under /tmp (or ${TMPDIR}, if set), but it can
also be set explicitly using the -s option (any existing file or
socket with that name is deleted). The permissions are set so that the
socket can be accessed only by processes of the user running the
agent.

Alternatively, the parent process can provide the socket. If fd 0
(stdin) is a socket in the listen state, the agent will accept
connections on it. This convention is supported by systemd ("socket
activation") as well as by inetd (a stream "wait" service). In this
mode, providing a command to run or a socket name with -s is invalid.

The first non-option argument, if any, is a command that the agent
should spawn. The remaining arguments are passed to it. The
environment variable SSH_AUTH_SOCK is set to the agent's socket. The
agent runs until the command exits, and propagates its exit code.

If no command is given, the agent accepts connections indefinitely.
SIGHUP makes it clean up and exit.

The --pid-file option writes the pid of the command the agent started,
or of the agent itself if no command was given. "-" means stdout.

Any of the above can also be set in a TOML file named with --config;
flags given on the command line take precedence over the file.
`
	cfg := config.Daemon{Connector: "localhost:12345", KeyID: -1}
	if configFile := findConfigFlag(os.Args[1:]); configFile != "" {
		var err error
		if cfg, err = config.Load(configFile, cfg); err != nil {
			return 0, err
		}
	}
	help := false
	configFile := ""

	set := getopt.New()
	set.SetParameters("[cmd ...]")
	set.SetUsage(func() { fmt.Print(usage) })
	set.FlagLong(&configFile, "config", 0, "TOML config file; flags below override its values")
	set.FlagLong(&cfg.Connector, "connector", 'c', "host:port")
	set.FlagLong(&cfg.KeyID, "key-id", 'i', "yubihsm key id")
	set.FlagLong(&cfg.AuthFile, "auth-file", 'a', "file with yubihsm auth-id:passphrase")
	set.FlagLong(&cfg.KeyFile, "key-file", 'k', "private key file")
	set.FlagLong(&cfg.SocketName, "socket-name", 's', "name of unix socket")
	set.FlagLong(&cfg.PidFile, "pid-file", 0, "for writing pid of agent or command, '-' means stdout")
	set.FlagLong(&help, "help", 'h', "Display help")

	if err := set.Getopt(os.Args, nil); err != nil {
		log.Error().Err(err).Msg("parsing arguments")
		set.PrintUsage(os.Stderr)
		return 1, nil
	}
	if help {
		set.PrintUsage(os.Stdout)
		fmt.Print(usage)
		return 0, nil
	}

	connector, keyID, authFile, keyFile, socketName, pidFile := cfg.Connector, cfg.KeyID, cfg.AuthFile, cfg.KeyFile, cfg.SocketName, cfg.PidFile

	if (keyID < 0 && len(keyFile) == 0) || (keyID >= 0 && len(keyFile) > 0) {
		return 0, fmt.Errorf("exactly one of --key-id and --key-file must be provided")
	}
	if keyID >= 0 && len(authFile) == 0 {
		return 0, fmt.Errorf("--auth-file is required with --key-id")
	}

	printSocket := false
	socket, err := inetdSocket(os.Stdin)
	if err != nil {
		return 0, err
	}
	if socket != nil {
		defer socket.Close()
		if len(socketName) > 0 {
			return 0, fmt.Errorf("started from inetd/systemd, --socket-name is invalid")
		}
		if len(set.Args()) > 0 {
			return 0, fmt.Errorf("started from inetd/systemd, specifying a command is invalid")
		}
		os.Stdin.Close()
	} else {
		if len(socketName) == 0 {
			r := make([]byte, 8)
			if _, err := rand.Read(r); err != nil {
				return 0, fmt.Errorf("rand.Read failed: %v", err)
			}
			socketName = filepath.Join(os.TempDir(), fmt.Sprintf("agentwire-%x.sock", r))
			printSocket = true
		} else if err := os.Remove(socketName); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("removing %q: %v", socketName, err)
		}
		socket, err = openSocket(socketName)
		if err != nil {
			return 0, fmt.Errorf("listening on %q: %v", socketName, err)
		}
		defer socket.Close()
		defer os.Remove(socketName)
	}

	signer, comment, cleanup, err := loadSigner(keyFile, connector, authFile, keyID)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	local, err := signing.NewLocal(signer, comment)
	if err != nil {
		return 0, fmt.Errorf("preparing signer: %v", err)
	}
	keyring := signing.NewKeyring(local)

	if len(set.Args()) > 0 {
		go runAgent(socket, keyring)

		cmd := createCommand(socketName, pidFile != "-", set.Args())
		if err := cmd.Start(); err != nil {
			return 0, err
		}
		if len(pidFile) > 0 {
			useStdout, err := writePidFile(pidFile, cmd.Process.Pid)
			if err != nil {
				return 0, err
			}
			if useStdout {
				os.Stdout.Close()
			} else {
				defer os.Remove(pidFile)
			}
		}
		err = cmd.Wait()
		if exit, ok := err.(*exec.ExitError); ok && exit.Exited() {
			return exit.ExitCode(), nil
		}
		return 0, err
	}

	if len(pidFile) > 0 {
		useStdout, err := writePidFile(pidFile, os.Getpid())
		if err != nil {
			return 0, err
		}
		if !useStdout {
			defer os.Remove(pidFile)
		}
	}
	if printSocket {
		fmt.Printf("%s\n", socketName)
	}
	os.Stdout.Close()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGHUP)
		<-ch
		log.Info().Msg("received SIGHUP, shutting down")
		socket.Close()
	}()
	runAgent(socket, keyring)
	return 0, nil
}

func loadSigner(keyFile, connector, authFile string, keyID int) (crypto.Signer, string, func(), error) {
	if len(keyFile) > 0 {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, "", nil, fmt.Errorf("reading private key file %q: %v", keyFile, err)
		}
		if keyBytes, err := opensshkey.ParsePrivateKeyPEM(data); err == nil {
			return ed25519.PrivateKey(keyBytes), keyFile, func() {}, nil
		}
		signer, err := loadPassphraseProtectedSigner(data, keyFile)
		if err != nil {
			return nil, "", nil, err
		}
		return signer, keyFile, func() {}, nil
	}

	if keyID >= 0x10000 {
		return nil, "", nil, fmt.Errorf("key id %d out of range", keyID)
	}
	buf, err := os.ReadFile(authFile)
	if err != nil {
		return nil, "", nil, fmt.Errorf("reading auth file %q: %v", authFile, err)
	}
	buf = bytes.TrimSpace(buf)
	colon := bytes.IndexByte(buf, ':')
	if colon < 0 {
		return nil, "", nil, fmt.Errorf("invalid auth file %q, missing ':'", authFile)
	}
	authID, err := strconv.ParseUint(string(buf[:colon]), 10, 16)
	if err != nil {
		return nil, "", nil, fmt.Errorf("invalid auth id in file %q: %v", authFile, err)
	}
	authPassword := string(buf[colon+1:])
	hsmKey, err := openHSM(connector, uint16(authID), authPassword, uint16(keyID))
	if err != nil {
		return nil, "", nil, fmt.Errorf("connecting to hsm: %v", err)
	}
	return hsmKey, fmt.Sprintf("yubihsm:%d", keyID), hsmKey.Close, nil
}

// loadPassphraseProtectedSigner handles the private key files opensshkey
// deliberately doesn't: anything encrypted, and any key type other than
// ed25519. It prompts on the controlling terminal only if the key turns
// out to actually need a passphrase.
func loadPassphraseProtectedSigner(data []byte, keyFile string) (crypto.Signer, error) {
	key, err := cryptossh.ParseRawPrivateKey(data)
	if _, ok := err.(*cryptossh.PassphraseMissingError); ok {
		fmt.Fprintf(os.Stderr, "Enter passphrase for key %q: ", keyFile)
		passphrase, rerr := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if rerr != nil {
			return nil, fmt.Errorf("reading passphrase for %q: %w", keyFile, rerr)
		}
		key, err = cryptossh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing private key file %q: %w", keyFile, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key file %q does not hold a signing key", keyFile)
	}
	return signer, nil
}

// findConfigFlag scans args for -config/--config ahead of the real getopt
// pass, so the file it names can seed defaults that command-line flags are
// still free to override.
func findConfigFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

// If the file isn't a listening socket, returns nil listener, no error.
func inetdSocket(f *os.File) (net.Listener, error) {
	acceptConn, err := syscall.GetsockoptInt(int(f.Fd()), syscall.SOL_SOCKET, syscall.SO_ACCEPTCONN)
	if err != nil || acceptConn == 0 {
		return nil, nil
	}
	return net.FileListener(f)
}

func openSocket(socketName string) (net.Listener, error) {
	oldMask := syscall.Umask(0077)
	defer syscall.Umask(oldMask)
	return net.Listen("unix", socketName)
}

// The connector may still be starting up; retry a few times.
func openHSM(connector string, authID uint16, authPassword string, keyID uint16) (*signing.YubiHSMKey, error) {
	key, err := signing.NewYubiHSMKey(connector, authID, authPassword, keyID)
	if err == nil {
		return key, nil
	}
	for _, delay := range []int{1, 2, 4, 8} {
		log.Warn().Err(err).Int("retry_in_seconds", delay).Msg("connecting to hsm failed")
		time.Sleep(time.Duration(delay) * time.Second)
		key, err = signing.NewYubiHSMKey(connector, authID, authPassword, keyID)
		if err == nil {
			return key, nil
		}
	}
	return nil, err
}

// runAgent accepts connections and serves each on its own goroutine. It
// returns once the listening socket is closed underneath it.
func runAgent(socket net.Listener, keyring *signing.Keyring) {
	for {
		c, err := socket.Accept()
		if err != nil {
			return
		}
		go serveConn(c, keyring)
	}
}

func serveConn(c net.Conn, keyring *signing.Keyring) {
	defer c.Close()
	err := transport.ServeConn(c, sshkey.Parser{},
		func(req *agent.InboundRequest) {
			if err := req.IdentitiesReply(keyring.Identities()); err != nil {
				log.Error().Err(err).Msg("answering REQUEST_IDENTITIES")
			}
		},
		func(req *agent.InboundRequest, key agent.ParsedKey, data []byte, flags agent.SignFlags) {
			signer, ok := keyring.Lookup(key.Blob())
			if !ok {
				req.FailureReply()
				return
			}
			sig, err := signer.Sign(data, flags)
			if err != nil {
				log.Error().Err(err).Msg("signing failed")
				req.FailureReply()
				return
			}
			if err := req.SignReply(sig); err != nil {
				log.Error().Err(err).Msg("answering SIGN_REQUEST")
			}
		})
	if err != nil {
		log.Debug().Err(err).Msg("connection closed")
	}
}

func createCommand(socketName string, useStdout bool, cmdLine []string) *exec.Cmd {
	cmd := exec.Command(cmdLine[0], cmdLine[1:]...)
	cmd.Env = append(cmd.Environ(), fmt.Sprintf("SSH_AUTH_SOCK=%s", socketName))
	cmd.Stdin = os.Stdin
	if useStdout {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	return cmd
}

func writePidFile(file string, pid int) (bool, error) {
	if file == "-" {
		if _, err := fmt.Printf("%d\n", pid); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := os.WriteFile(file, []byte(fmt.Sprintf("%d\n", pid)), 0660); err != nil {
		return false, fmt.Errorf("writing pid file: %v", err)
	}
	return false, nil
}
