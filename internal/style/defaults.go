package style

const defaultNegative = "blurry, low quality, distorted, watermark, text"

// Defaults are the presets shipped with the service.
var Defaults = []Preset{
	{ID: "none", Label: "None"},
	{
		ID:     "anime",
		Label:  "Anime",
		Suffix: "anime style, vibrant colors, Studio Ghibli inspired, detailed illustration, hand-drawn aesthetic",
	},
	{
		ID:             "realistic",
		Label:          "Realistic",
		Suffix:         "photorealistic, highly detailed, 8K resolution, professional photography, sharp focus, natural lighting",
		NegativePrompt: defaultNegative + ", cartoon, illustration",
	},
	{
		ID:     "digital-art",
		Label:  "Digital Art",
		Suffix: "digital painting, artstation trending, concept art, smooth illustration, professional digital art",
	},
	{
		ID:             "watercolor",
		Label:          "Watercolor",
		Suffix:         "watercolor painting, soft colors, artistic, gentle brushstrokes, traditional art style",
		NegativePrompt: defaultNegative,
	},
	{
		ID:     "oil-painting",
		Label:  "Oil Painting",
		Suffix: "oil painting, classical art style, textured brushwork, rich colors, fine art",
	},
	{
		ID:     "cyberpunk",
		Label:  "Cyberpunk",
		Suffix: "cyberpunk style, neon lights, futuristic, sci-fi, dystopian, high contrast, dark atmosphere",
	},
	{
		ID:     "fantasy",
		Label:  "Fantasy",
		Suffix: "fantasy art, magical, enchanted, epic, mystical atmosphere, otherworldly, detailed fantasy illustration",
	},
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Defaults...)
	if err != nil {
		panic(err)
	}
	return c
}
