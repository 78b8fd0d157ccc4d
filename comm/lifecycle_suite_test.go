// Ginkgo entry point for the endpoint lifecycle BDD suite. Grounded on the
// teacher's transport/lifecycle_test.go ginkgo+gomega runner pattern.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestLifecycle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "comm endpoint lifecycle Suite")
}
