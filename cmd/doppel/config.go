package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/doppel"
	"github.com/codeGROOVE-dev/doppel/density"
)

// fileConfig is the YAML shape of a pipeline config file. Zero values
// fall back to the pipeline defaults.
type fileConfig struct {
	Vector struct {
		MinDocFreq  int     `yaml:"min_doc_freq"`
		MaxDocFreq  float64 `yaml:"max_doc_freq"`
		Unigrams    *bool   `yaml:"unigrams"`
		Bigrams     *bool   `yaml:"bigrams"`
		Components  int     `yaml:"components"`
		L2Normalize *bool   `yaml:"l2_normalize"`
	} `yaml:"vector"`
	Density struct {
		MinClusterSize int    `yaml:"min_cluster_size"`
		MinSamples     int    `yaml:"min_samples"`
		Metric         string `yaml:"metric"`
	} `yaml:"density"`
	Resolve struct {
		CosineThreshold float64 `yaml:"cosine_threshold"`
		MultiAccount    *bool   `yaml:"multi_account"`
	} `yaml:"resolve"`
	Consensus    bool    `yaml:"consensus"`
	OutlierFloor float64 `yaml:"outlier_floor"`
}

func loadConfig(path string) (doppel.Config, error) {
	cfg := doppel.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.Vector.MinDocFreq > 0 {
		cfg.Vector.MinDocFreq = fc.Vector.MinDocFreq
	}
	if fc.Vector.MaxDocFreq > 0 {
		cfg.Vector.MaxDocFreq = fc.Vector.MaxDocFreq
	}
	if fc.Vector.Unigrams != nil {
		cfg.Vector.Unigrams = *fc.Vector.Unigrams
	}
	if fc.Vector.Bigrams != nil {
		cfg.Vector.Bigrams = *fc.Vector.Bigrams
	}
	if fc.Vector.Components > 0 {
		cfg.Vector.Components = fc.Vector.Components
	}
	if fc.Vector.L2Normalize != nil {
		cfg.Vector.L2Normalize = *fc.Vector.L2Normalize
	}

	if fc.Density.MinClusterSize > 0 {
		cfg.Density.MinClusterSize = fc.Density.MinClusterSize
	}
	if fc.Density.MinSamples > 0 {
		cfg.Density.MinSamples = fc.Density.MinSamples
	}
	if fc.Density.Metric != "" {
		metric, err := density.ParseMetric(fc.Density.Metric)
		if err != nil {
			return cfg, err
		}
		cfg.Density.Metric = metric
	}

	if fc.Resolve.CosineThreshold > 0 {
		cfg.Resolve.CosineThreshold = fc.Resolve.CosineThreshold
	}
	if fc.Resolve.MultiAccount != nil {
		cfg.Resolve.MultiAccount = *fc.Resolve.MultiAccount
	}

	cfg.Consensus = fc.Consensus
	if fc.OutlierFloor > 0 {
		cfg.OutlierFloor = fc.OutlierFloor
	}
	return cfg, nil
}
