package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/config"
	"github.com/nicolagi/dirtydocs/internal/docshclient"
	"github.com/nicolagi/dirtydocs/internal/wire"
)

// docsh is the interactive line-oriented client of §6.4: it accepts every
// verb of §4.4 plus help, man <verb> and exit.
func main() {
	base := flag.String("base", config.DefaultBaseDirectoryPath, "base directory for configuration")
	username := flag.String("user", defaultUsername(), "username to register as")
	addr := flag.String("addr", "", "name server command address, overrides configuration")
	flag.Parse()

	cfg, err := config.Load(*base)
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}
	nsAddr := cfg.NSCommandAddr
	if *addr != "" {
		nsAddr = *addr
	}

	sess, err := docshclient.Dial(nsAddr, *username)
	if err != nil {
		fmt.Fprintln(os.Stderr, "registration failed:", err)
		os.Exit(1)
	}
	defer sess.Close()

	fmt.Printf("connected to %s as %s. Type help for a command list.\n", nsAddr, *username)

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print("docsh> ")
		if !in.Scan() {
			break
		}
		line := in.Text()
		fields := wire.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return
		case "help":
			printHelp()
			continue
		case "man":
			if len(fields) != 2 {
				fmt.Println("usage: man <verb>")
				continue
			}
			printMan(fields[1])
			continue
		case "diff":
			if len(fields) != 4 {
				fmt.Println("usage: diff <name> <tag-a> <tag-b>")
				continue
			}
			if err := runDiff(sess, fields[1], fields[2], fields[3]); err != nil {
				fmt.Fprintln(os.Stderr, "diff:", err)
			}
			continue
		}

		if err := runVerb(sess, fields); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			if err == io.EOF {
				return
			}
		}
	}
}

func defaultUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "anonymous"
}
