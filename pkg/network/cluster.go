package network

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/mat"

	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
)

const (
	// MethodLouvain selects greedy modularity-maximizing clustering.
	MethodLouvain = "louvain"
	// MethodSpectral selects spectral clustering over the weighted
	// adjacency matrix.
	MethodSpectral = "spectral"

	clusterSeed    = 42
	kmeansMaxIter  = 100
	spectralMinDim = 1
)

// DetectClusters partitions the nodes with the given method and stores the
// partition for the modularity term of Stats. A network without nodes
// yields an empty partition; one without edges yields a singleton cluster
// per node, numbered in sorted word order. Unknown methods and failed
// clusterings fall back to a single cluster 0 containing every node.
// Partitions are deterministic: repeated calls on the same network return
// identical cluster ids.
func (n *Network) DetectClusters(method string, targetClusters int, resolution float64) Partition {
	if !n.built || len(n.words) == 0 {
		return Partition{}
	}
	if len(n.edges) == 0 {
		partition := make(Partition, len(n.words))
		for i, word := range n.words {
			partition[word] = i
		}
		n.partition = partition
		return partition
	}

	var partition Partition
	switch method {
	case MethodLouvain:
		partition = n.louvain(resolution)
	case MethodSpectral:
		p, err := n.spectral(targetClusters)
		if err != nil {
			n.fault("spectral", err)
			p = n.singleCluster()
		}
		partition = p
	default:
		partition = n.singleCluster()
	}
	n.partition = partition
	return partition
}

func (n *Network) singleCluster() Partition {
	partition := make(Partition, len(n.words))
	for _, word := range n.words {
		partition[word] = 0
	}
	return partition
}

// louvain runs seeded modularity maximization. Cluster ids are assigned in
// order of each community's lexicographically smallest word, which keeps
// repeated runs identical.
func (n *Network) louvain(resolution float64) Partition {
	reduced := community.Modularize(n.g, resolution, rand.NewPCG(clusterSeed, clusterSeed))
	communities := reduced.Communities()

	groups := make([][]string, 0, len(communities))
	for _, comm := range communities {
		words := make([]string, 0, len(comm))
		for _, node := range comm {
			words = append(words, n.word(node.ID()))
		}
		sort.Strings(words)
		groups = append(groups, words)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	partition := make(Partition, len(n.words))
	for id, words := range groups {
		for _, word := range words {
			partition[word] = id
		}
	}
	logger.Debug("[Network] louvain clustering complete",
		"nodes", len(n.words), "edges", len(n.edges), "clusters", len(groups))
	return partition
}

// spectral embeds the nodes with the eigenvectors of the k smallest
// eigenvalues of the symmetric normalized Laplacian, row-normalizes the
// embedding and clusters it with seeded k-means. Labels are renumbered by
// first appearance over the sorted word order, which keeps repeated runs
// identical.
func (n *Network) spectral(targetClusters int) (Partition, error) {
	nn := len(n.words)
	k := targetClusters
	if k > nn {
		k = nn
	}
	if k < spectralMinDim {
		k = spectralMinDim
	}

	strength := make([]float64, nn)
	for i, word := range n.words {
		strength[i] = n.strengthOf(word)
	}
	laplacian := mat.NewSymDense(nn, nil)
	for i := 0; i < nn; i++ {
		laplacian.SetSym(i, i, 1)
	}
	for pair, info := range n.edges {
		i := int(n.ids[pair.A])
		j := int(n.ids[pair.B])
		if strength[i] > 0 && strength[j] > 0 {
			laplacian.SetSym(i, j, -float64(info.Weight)/math.Sqrt(strength[i]*strength[j]))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(laplacian, true) {
		return nil, errors.New("eigendecomposition failed")
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	embedding := mat.NewDense(nn, k, nil)
	for i := 0; i < nn; i++ {
		norm := 0.0
		for j := 0; j < k; j++ {
			v := vectors.At(i, j)
			embedding.Set(i, j, v)
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := 0; j < k; j++ {
				embedding.Set(i, j, embedding.At(i, j)/norm)
			}
		}
	}

	labels := kmeans(embedding, k, rand.NewPCG(clusterSeed, clusterSeed))

	remap := make(map[int]int, k)
	partition := make(Partition, nn)
	for i, word := range n.words {
		id, ok := remap[labels[i]]
		if !ok {
			id = len(remap)
			remap[labels[i]] = id
		}
		partition[word] = id
	}
	return partition, nil
}

// kmeans clusters the rows of points into k groups with Lloyd iterations,
// seeding the initial centroids by distance-weighted sampling.
func kmeans(points *mat.Dense, k int, src *rand.PCG) []int {
	rng := rand.New(src)
	rows, cols := points.Dims()
	labels := make([]int, rows)
	if k <= 1 || rows == 0 {
		return labels
	}

	centroids := mat.NewDense(k, cols, nil)
	centroids.SetRow(0, mat.Row(nil, rng.IntN(rows), points))
	dist := make([]float64, rows)
	for c := 1; c < k; c++ {
		total := 0.0
		for i := 0; i < rows; i++ {
			best := math.Inf(1)
			for j := 0; j < c; j++ {
				if d := sqDist(points, i, centroids, j, cols); d < best {
					best = d
				}
			}
			dist[i] = best
			total += best
		}
		pick := rng.IntN(rows)
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dist {
				acc += d
				if acc >= target {
					pick = i
					break
				}
			}
		}
		centroids.SetRow(c, mat.Row(nil, pick, points))
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i := 0; i < rows; i++ {
			best := 0
			bestDist := math.Inf(1)
			for j := 0; j < k; j++ {
				if d := sqDist(points, i, centroids, j, cols); d < bestDist {
					bestDist = d
					best = j
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		counts := make([]int, k)
		sums := mat.NewDense(k, cols, nil)
		for i := 0; i < rows; i++ {
			counts[labels[i]]++
			for j := 0; j < cols; j++ {
				sums.Set(labels[i], j, sums.At(labels[i], j)+points.At(i, j))
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				centroids.Set(c, j, sums.At(c, j)/float64(counts[c]))
			}
		}
	}
	return labels
}

func sqDist(a *mat.Dense, ai int, b *mat.Dense, bi, cols int) float64 {
	sum := 0.0
	for j := 0; j < cols; j++ {
		d := a.At(ai, j) - b.At(bi, j)
		sum += d * d
	}
	return sum
}
