package fetch

import (
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// sftpTimeout bounds the SSH dial for one mirror fetch.
const sftpTimeout = 30 * time.Second

// defaultKeyFiles are tried in order for key authentication.
var defaultKeyFiles = []string{"id_ed25519", "id_rsa"}

// fetchSFTP downloads u (sftp://[user@]host[:port]/path) to dest using
// key authentication from the user's default SSH keys and host
// verification against their known_hosts file.
func fetchSFTP(u *url.URL, dest string) error {
	cfg, err := sshConfig(u)
	if err != nil {
		return err
	}

	addr := u.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return operr.NewError(operr.KindDownload, "ssh dial "+addr, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return operr.NewError(operr.KindDownload, "sftp session", err)
	}
	defer client.Close()

	remote, err := client.Open(u.Path)
	if err != nil {
		return operr.NewError(operr.KindDownload, "opening remote "+u.Path, err)
	}
	defer remote.Close()

	local, err := os.Create(dest)
	if err != nil {
		return operr.NewError(operr.KindDownload, "creating "+dest, err)
	}
	defer local.Close()

	if _, err := io.Copy(local, remote); err != nil {
		return operr.NewError(operr.KindDownload, "transferring "+u.Path, err)
	}
	return local.Close()
}

func sshConfig(u *url.URL) (*ssh.ClientConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, operr.NewError(operr.KindDownload, "resolving home directory", err)
	}

	var signers []ssh.Signer
	for _, name := range defaultKeyFiles {
		data, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) == 0 {
		return nil, operr.NewError(operr.KindDownload, "no usable SSH key for sftp mirror", nil)
	}

	hostKeys, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		return nil, operr.NewError(operr.KindDownload, "loading known_hosts", err)
	}

	user := u.User.Username()
	if user == "" {
		user = "hpm"
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signers...)},
		HostKeyCallback: hostKeys,
		Timeout:         sftpTimeout,
	}, nil
}
