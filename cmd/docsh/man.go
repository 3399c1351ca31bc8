package main

import "fmt"

var manPages = map[string]string{
	"CREATE":          "CREATE <name> - create an empty file owned by you",
	"CREATEFOLDER":    "CREATEFOLDER <name> - create an empty folder",
	"TRASH":           "TRASH <name> - move a file you own to your trash",
	"RESTORE":         "RESTORE <name> - restore a file from your trash",
	"VIEWTRASH":       "VIEWTRASH - list the files in your trash",
	"EMPTYTRASH":      "EMPTYTRASH - permanently delete every file in your trash",
	"DELETE":          "DELETE <name> - permanently delete a file you own",
	"READ":            "READ <name> - print a file's full content",
	"STREAM":          "STREAM <name> - print a file's content at a human pace",
	"WRITE":           "WRITE <name> <sentence> - edit a sentence by word index",
	"UNDO":            "UNDO <name> - restore the content from before the last WRITE",
	"CHECKPOINT":      "CHECKPOINT <name> <tag> - snapshot current content under tag",
	"REVERT":          "REVERT <name> <tag> - restore content from a checkpoint",
	"VIEWCHECKPOINT":  "VIEWCHECKPOINT <name> <tag> - print a checkpoint's content",
	"LISTCHECKPOINTS": "LISTCHECKPOINTS <name> - list a file's checkpoint tags",
	"VIEW":            "VIEW [-a] [-l] - list files visible to you, optionally all/with stats",
	"INFO":            "INFO <name> - print a file's owner, size, and ACLs",
	"LIST":            "LIST - list client sessions known to the name server",
	"ADDACCESS":       "ADDACCESS -R|-W <name> <user> - grant a user read or write access",
	"REMACCESS":       "REMACCESS <name> <user> - revoke a user's access",
	"MOVE":            "MOVE <src> <destfolder> - move a file into a folder (or \".\")",
	"VIEWFOLDER":      "VIEWFOLDER <name> - list the contents of a folder",
	"REQACCESS":       "REQACCESS -R|-W <name> - request read or write access from the owner",
	"LISTREQ":         "LISTREQ - list access requests you made or that target your files",
	"APPROVE":         "APPROVE <id> - approve a pending access request",
	"DENY":            "DENY <id> - deny a pending access request",
	"EXEC":            "EXEC <name> - fetch a file and run it as a program, printing its output",
	"diff":            "diff <name> <tag-a> <tag-b> - unified diff between two checkpoints",
	"help":            "help - list every command",
	"man":             "man <verb> - show detailed help for one command",
	"exit":            "exit - close the session and quit",
}

func printHelp() {
	fmt.Println("Commands (man <verb> for details):")
	for _, verb := range []string{
		"CREATE", "CREATEFOLDER", "TRASH", "RESTORE", "VIEWTRASH", "EMPTYTRASH", "DELETE",
		"READ", "STREAM", "WRITE", "UNDO", "CHECKPOINT", "REVERT", "VIEWCHECKPOINT", "LISTCHECKPOINTS",
		"VIEW", "INFO", "LIST", "ADDACCESS", "REMACCESS", "MOVE", "VIEWFOLDER",
		"REQACCESS", "LISTREQ", "APPROVE", "DENY", "EXEC", "diff", "help", "man", "exit",
	} {
		fmt.Println("  " + verb)
	}
}

func printMan(verb string) {
	if page, ok := manPages[verb]; ok {
		fmt.Println(page)
		return
	}
	fmt.Printf("no manual entry for %q\n", verb)
}
