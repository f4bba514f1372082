package main

import (
	"fmt"
	"strings"

	"github.com/abdulachik/threadsmith/internal/attach"
	"github.com/abdulachik/threadsmith/internal/thread"
)

// printThread writes the thread to stdout the way it will be published.
func printThread(th thread.Thread) {
	printThreadWithImages(th, nil)
}

func printThreadWithImages(th thread.Thread, images *attach.Set) {
	if th.IsThread() {
		fmt.Printf("Thread (%d posts)\n", th.Len())
	} else {
		fmt.Println("Single post")
	}
	fmt.Println(strings.Repeat("─", 40))

	for _, s := range th {
		fmt.Printf("[%d] %d chars\n", s.Index+1, s.CharCount())
		fmt.Println(s.Text)
		if images != nil {
			if img, ok := images.Get(s.Index); ok {
				fmt.Printf("    image: %s (%s, %d KB)\n", img.Name, img.ContentType, img.Size/1024)
			}
		}
		fmt.Println()
	}
}
