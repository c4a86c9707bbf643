package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/LandSharkFive/DiskTwo/btree"
)

func main() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("DiskTwo Demo: single-file classic B-tree index")
	fmt.Println(strings.Repeat("=", 72))

	dir, err := os.MkdirTemp("", "disktwo-demo-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	demoTree(filepath.Join(dir, "demo.db"))
	fmt.Println()
	demoBulkLoad(filepath.Join(dir, "bulk.db"))
}

func demoTree(path string) {
	fmt.Println("\n### Insert / search / delete ###")
	fmt.Println(strings.Repeat("-", 40))

	tree, err := btree.Open(path, 8)
	if err != nil {
		log.Fatal(err)
	}
	defer tree.Close()

	fmt.Println("✓ Created index with order 8")

	fmt.Println("\n[Writing 1..500]")
	for i := int32(1); i <= 500; i++ {
		if err := tree.InsertKey(i, i*10); err != nil {
			log.Fatal(err)
		}
	}

	e, ok, err := tree.TrySearch(250)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("search 250 -> (%d, %d) found=%v\n", e.Key, e.Data, ok)

	fmt.Println("\n[Deleting the even keys]")
	for i := int32(2); i <= 500; i += 2 {
		if err := tree.Delete(i, 0); err != nil {
			log.Fatal(err)
		}
	}

	min, _, _ := tree.FindMin()
	max, _, _ := tree.FindMax()
	fmt.Printf("min=(%d,%d) max=(%d,%d)\n", min.Key, min.Data, max.Key, max.Data)

	report, err := tree.PerformFullAudit()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("audit: height=%d reachable=%d keys=%d density=%.2f zombies=%d\n",
		report.Height, report.ReachableNodes, report.TotalKeys,
		report.AverageDensity, report.ZombieCount)

	before := fileSize(path)
	if err := tree.Compact(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("compact: %d bytes -> %d bytes\n", before, fileSize(path))

	if err := tree.ValidateIntegrity(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✓ Integrity checks pass")
}

func demoBulkLoad(path string) {
	fmt.Println("### Bulk load ###")
	fmt.Println(strings.Repeat("-", 40))

	elems := make([]btree.Element, 10000)
	for i := range elems {
		elems[i] = btree.Element{Key: int32(i), Data: int32(i * 2)}
	}

	if err := btree.BuildFromSorted(elems, path, 32, 0.8); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✓ Built index from 10,000 sorted elements")

	tree, err := btree.Open(path, 32)
	if err != nil {
		log.Fatal(err)
	}
	defer tree.Close()

	report, err := tree.PerformFullAudit()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("audit: height=%d reachable=%d keys=%d density=%.2f\n",
		report.Height, report.ReachableNodes, report.TotalKeys, report.AverageDensity)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
