// Command flashtool is the host-side counterpart to cmd/bootloader's
// recovery server: it pushes a firmware image over the recovery HTTP
// transport, reports info, or requests a reboot.
package main

import (
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	defaultPort    = "80"
	defaultTimeout = 10 * time.Second
	readTimeout    = 30 * time.Second
)

func main() {
	host := flag.String("host", "", "Device IP address (required)")
	port := flag.String("port", defaultPort, "Recovery server port")
	cmd := flag.String("cmd", "", "push | info | reboot (positional also accepted)")
	yes := flag.Bool("yes", false, "skip the interactive confirmation before flashing")
	flag.Parse()

	if *host == "" {
		if flag.NArg() > 0 {
			*host = flag.Arg(0)
		} else {
			printUsage()
			os.Exit(1)
		}
	}
	if *cmd == "" && flag.NArg() > 1 {
		*cmd = flag.Arg(1)
	}

	var err error
	switch *cmd {
	case "push":
		var fwPath string
		if flag.NArg() > 2 {
			fwPath = flag.Arg(2)
		} else {
			fmt.Println("Usage: flashtool <ip> push <image.bin>")
			os.Exit(1)
		}
		err = push(*host, *port, fwPath, *yes)
	case "reboot":
		err = reboot(*host, *port)
	case "info", "":
		err = info(*host, *port)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: flashtool <ip> [push <image.bin>|info|reboot] [-port N] [-yes]")
}

// confirm prompts the operator before an irreversible flash, unless
// skip is set or stdin is not an interactive terminal (scripted CI use).
func confirm(msg string, skip bool) bool {
	if skip {
		return true
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Printf("%s [y/N]: ", msg)
	var resp string
	fmt.Scanln(&resp)
	resp = strings.ToLower(strings.TrimSpace(resp))
	return resp == "y" || resp == "yes"
}

func push(host, port, fwPath string, skipConfirm bool) error {
	data, err := os.ReadFile(fwPath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	digest := sha256.Sum256(data)

	fmt.Printf("Image: %s\n", fwPath)
	fmt.Printf("Size: %d bytes\n", len(data))
	fmt.Printf("SHA256: %x\n", digest)

	if !confirm(fmt.Sprintf("Flash %s to %s?", fwPath, host), skipConfirm) {
		return fmt.Errorf("aborted by operator")
	}

	addr := net.JoinHostPort(host, port)
	conn, err := net.DialTimeout("tcp", addr, defaultTimeout)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	hexDigest := fmt.Sprintf("%x", digest)
	req := "POST /upload HTTP/1.1\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Length: " + strconv.Itoa(len(data)) + "\r\n" +
		"X-Image-Sha256: " + hexDigest + "\r\n" +
		"Connection: close\r\n\r\n"

	conn.SetWriteDeadline(time.Now().Add(defaultTimeout))
	if _, err := conn.Write([]byte(req)); err != nil {
		return fmt.Errorf("send headers: %w", err)
	}

	total := len(data)
	const chunkSize = 4096
	for i := 0; i < total; i += chunkSize {
		end := i + chunkSize
		if end > total {
			end = total
		}
		if _, err := conn.Write(data[i:end]); err != nil {
			return fmt.Errorf("send body: %w", err)
		}
		fmt.Printf("\r[%3d%%] %d/%d bytes", (end)*100/total, end, total)
	}
	fmt.Println()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return fmt.Errorf("read response: %w", err)
	}

	if strings.Contains(string(resp), "200 OK") {
		fmt.Println("Verified and committed. Device will swap and reboot.")
		return nil
	}
	return fmt.Errorf("device rejected upload: %s", strings.TrimSpace(string(resp)))
}

func info(host, port string) error {
	addr := net.JoinHostPort(host, port)
	conn, err := net.DialTimeout("tcp", addr, defaultTimeout)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(defaultTimeout))
	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Println(string(resp))
	return nil
}

func reboot(host, port string) error {
	addr := net.JoinHostPort(host, port)
	conn, err := net.DialTimeout("tcp", addr, defaultTimeout)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(defaultTimeout))
	_, err = conn.Write([]byte("GET /reboot HTTP/1.1\r\nConnection: close\r\n\r\n"))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	fmt.Println("Reboot requested.")
	return nil
}
