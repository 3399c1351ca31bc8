package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nicolagi/dirtydocs/internal/docshclient"
	"github.com/nicolagi/dirtydocs/internal/textdiff"
	"github.com/nicolagi/dirtydocs/internal/wire"
)

// runDiff fetches two checkpoints of name and prints their unified diff,
// supplementing the VIEWCHECKPOINT verb of §4.4 with a comparison view.
func runDiff(sess *docshclient.Session, name, tagA, tagB string) error {
	a, err := fetchCheckpoint(sess, name, tagA)
	if err != nil {
		return fmt.Errorf("%s@%s: %w", name, tagA, err)
	}
	b, err := fetchCheckpoint(sess, name, tagB)
	if err != nil {
		return fmt.Errorf("%s@%s: %w", name, tagB, err)
	}
	out, err := textdiff.Unified(a, b, 3)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println("no differences")
		return nil
	}
	fmt.Print(out)
	return nil
}

func fetchCheckpoint(sess *docshclient.Session, name, tag string) (string, error) {
	line := wire.VerbViewCheckpoint + " " + name + " " + tag
	reply, err := sess.Do(line)
	if err != nil {
		return "", err
	}
	ip, port, ok := docshclient.ParseRedirect(wire.VerbViewCheckpoint, reply)
	if !ok {
		return "", fmt.Errorf("%s", reply)
	}
	conn, r, err := docshclient.DialSS(ip, port)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err := wire.WriteLine(conn, line); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil && err != io.EOF {
		return "", err
	}
	return buf.String(), nil
}
