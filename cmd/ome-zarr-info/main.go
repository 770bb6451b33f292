// Inspection tool for OME-Zarr stores: classification, levels, axes,
// transforms, and channels, without reading any chunk data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "gocloud.dev/blob/fileblob"

	omezarr "github.com/ianhi/xarray-ome"
	"github.com/ianhi/xarray-ome/ngff"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ome-zarr-info <path-or-url>")
		os.Exit(1)
	}
	path := os.Args[1]
	ctx := context.Background()

	kind, err := omezarr.Classify(ctx, path)
	if err != nil {
		fmt.Printf("ERROR: failed to classify store: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Store: %s\nKind:  %s\n", path, kind)
	if kind != ngff.KindImage {
		os.Exit(0)
	}

	tree, err := omezarr.OpenDataTree(ctx, path)
	if err != nil {
		var cerr *omezarr.ClassificationError
		if errors.As(err, &cerr) {
			fmt.Printf("Not an image pyramid (classified as %s)\n", cerr.Kind)
			os.Exit(1)
		}
		fmt.Printf("ERROR: failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer tree.Close()

	if name, ok := tree.Attrs[omezarr.AttrName].(string); ok {
		fmt.Printf("Name:  %s\n", name)
	}
	if version, ok := tree.Attrs[omezarr.AttrVersion].(string); ok {
		fmt.Printf("NGFF:  %s\n", version)
	}
	fmt.Printf("Levels: %d\n\n", len(tree.Children))

	for _, node := range tree.Children {
		da := node.Dataset.Primary()
		fmt.Printf("%s: shape %v dtype %s\n", node.Name, da.Data.Shape(), da.Data.DType())
		for _, coord := range da.Coords {
			if coord.Categorical() {
				fmt.Printf("  %s: %v\n", coord.Name, coord.Labels)
				continue
			}
			n := coord.Len()
			if n == 0 {
				fmt.Printf("  %s: (empty)\n", coord.Name)
			} else if n == 1 {
				fmt.Printf("  %s: [%g]\n", coord.Name, coord.Values[0])
			} else {
				fmt.Printf("  %s: [%g .. %g] step %g\n",
					coord.Name, coord.Values[0], coord.Values[n-1], coord.Values[1]-coord.Values[0])
			}
		}
	}
}
