package analysis

// Instructions is the fixed text part sent next to the image.
const Instructions = `Analyze the food in this image. Identify the food, estimate its nutritional information for a standard serving size, and provide a detailed body-impact analysis. Explain how its key nutrients benefit specific organs or body systems (like heart, muscles, brain, digestive system, energy). Also, provide a 'Smart Consumption' tip and an 'Important Awareness' warning. Present the output as a JSON object strictly following the provided schema.`
