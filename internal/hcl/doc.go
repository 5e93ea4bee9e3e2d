// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for all file parsing and for translating
// `settings` and `node_type` blocks into the format-agnostic config model.
//
// A minimal file looks like:
//
//	settings {
//	  api_url       = "https://api.example.com"
//	  cost_debounce = "300ms"
//	  proximity {
//	    threshold = 32
//	  }
//	}
//
//	node_type "image_gen" {
//	  model = "flux-pro"
//	  input "prompt" {
//	    type     = string
//	    required = true
//	  }
//	  output "image" {
//	    type = string
//	  }
//	}
package hcl
